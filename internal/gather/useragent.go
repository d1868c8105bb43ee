package gather

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// minThrottlingVersion is the first headless Chrome build with working
// network throttling.
const minThrottlingVersion = "63.0.3239.0"

var headlessUA = regexp.MustCompile(`HeadlessChrome/([\d.]+)`)

// headlessThrottlingWarning returns a run warning when the user agent
// identifies a headless build too old to honor throttling commands.
func headlessThrottlingWarning(userAgent string) (string, bool) {
	m := headlessUA.FindStringSubmatch(userAgent)
	if m == nil {
		return "", false
	}
	if !versionLess(m[1], minThrottlingVersion) {
		return "", false
	}
	return fmt.Sprintf(
		"Headless Chrome %s does not support network throttling; performance numbers may be inaccurate. Use version %s or newer.",
		m[1], minThrottlingVersion), true
}

// versionLess compares dotted numeric versions; missing components count as
// zero, non-numeric components as less than any number.
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			return av < bv
		}
	}
	return false
}

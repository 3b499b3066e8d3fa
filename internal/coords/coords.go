package coords

import (
	"regexp"
	"strconv"
	"strings"
)

// Triple is an (x, y, z) block coordinate. Y is the elevation.
type Triple struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// String renders the triple as "x,y,z".
func (t Triple) String() string {
	return strconv.Itoa(t.X) + "," + strconv.Itoa(t.Y) + "," + strconv.Itoa(t.Z)
}

// Strategy recognises one textual coordinate form.
//
// defaultY is substituted wherever the form omits or defers the elevation.
// Implementations return false for anything they do not recognise,
// including numerals that overflow int.
type Strategy func(text string, defaultY int) (Triple, bool)

// Rule names a [Strategy] so callers can report which form matched.
type Rule struct {
	Name     string
	Strategy Strategy
}

// Rules is the strategy chain in precedence order.
var Rules = []Rule{
	{Name: "teleport", Strategy: Teleport},
	{Name: "labeled", Strategy: LabeledAxis},
	{Name: "bare", Strategy: BareTriple},
}

// Parse trims text and runs it through [Rules], returning the first match.
func Parse(text string, defaultY int) (Triple, bool) {
	t, _, ok := Match(text, defaultY)
	return t, ok
}

// Match is [Parse] but also returns the name of the rule that matched.
// The name is empty when nothing matched.
func Match(text string, defaultY int) (Triple, string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Triple{}, "", false
	}
	for _, r := range Rules {
		if t, ok := r.Strategy(text, defaultY); ok {
			return t, r.Name, true
		}
	}
	return Triple{}, "", false
}

// relativePlaceholder stands for "the current value" in a teleport command.
const relativePlaceholder = "~"

var (
	teleportDirectives = map[string]struct{}{
		"/tp": {}, "tp": {}, "/teleport": {}, "teleport": {},
	}
	targetSelectors = map[string]struct{}{
		"@p": {}, "@a": {}, "@r": {}, "@s": {}, "@e": {},
	}

	integerToken = regexp.MustCompile(`^[-+]?\d+$`)
	labeledAxis  = regexp.MustCompile(`(?is)X[:=]?\s*([-+]?\d+).*?Z[:=]?\s*([-+]?\d+)`)
	bareTriple   = regexp.MustCompile(`^([-+]?\d+)[,\s]+([-+]?\d+)[,\s]+([-+]?\d+)$`)
)

// Teleport recognises teleport commands.
//
// The first whitespace-separated token must be a teleport directive
// ("/tp", "tp", "/teleport" or "teleport", any case). Target selectors are
// discarded, as is every token that is neither an integer nor "~". A "~" in
// the second surviving slot becomes defaultY, anywhere else it becomes 0.
// Two survivors are read as (x, z); three or more as (x, y, z), ignoring
// the rest.
func Teleport(text string, defaultY int) (Triple, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Triple{}, false
	}
	if _, ok := teleportDirectives[strings.ToLower(fields[0])]; !ok {
		return Triple{}, false
	}

	values := make([]int, 0, 3)
	for _, f := range fields[1:] {
		if _, ok := targetSelectors[strings.ToLower(f)]; ok {
			continue
		}
		switch {
		case f == relativePlaceholder:
			if len(values) == 1 {
				values = append(values, defaultY)
			} else {
				values = append(values, 0)
			}
		case integerToken.MatchString(f):
			n, err := strconv.Atoi(f)
			if err != nil {
				return Triple{}, false
			}
			values = append(values, n)
		}
	}

	switch {
	case len(values) == 2:
		return Triple{X: values[0], Y: defaultY, Z: values[1]}, true
	case len(values) >= 3:
		return Triple{X: values[0], Y: values[1], Z: values[2]}, true
	default:
		return Triple{}, false
	}
}

// LabeledAxis finds an X label followed somewhere later by a Z label, each
// with an integer after an optional ':' or '='. Any Y label is ignored and
// the elevation is always defaultY.
func LabeledAxis(text string, defaultY int) (Triple, bool) {
	m := labeledAxis.FindStringSubmatch(text)
	if m == nil {
		return Triple{}, false
	}
	x, err := strconv.Atoi(m[1])
	if err != nil {
		return Triple{}, false
	}
	z, err := strconv.Atoi(m[2])
	if err != nil {
		return Triple{}, false
	}
	return Triple{X: x, Y: defaultY, Z: z}, true
}

// BareTriple accepts text that is exactly three integers separated by
// commas and/or whitespace. Surrounding words reject the match.
func BareTriple(text string, _ int) (Triple, bool) {
	m := bareTriple.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Triple{}, false
	}
	var out [3]int
	for i := range out {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Triple{}, false
		}
		out[i] = n
	}
	return Triple{X: out[0], Y: out[1], Z: out[2]}, true
}

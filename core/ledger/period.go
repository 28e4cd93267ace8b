package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

type Term string

// Terms, in rotation order within a session.
const (
	FirstTerm  Term = "First Term"
	SecondTerm Term = "Second Term"
	ThirdTerm  Term = "Third Term"
)

var (
	Terms = []Term{FirstTerm, SecondTerm, ThirdTerm}

	termAliases    = buildTermAliases()
	termAliasKeys  = sortedKeys(termAliases)
	termHintMinSim = .75

	errTermRequired    = errors.New("term is required")
	errSessionRequired = errors.New("session is required")
)

func buildTermAliases() map[string]Term {
	words := map[Term][]string{
		FirstTerm:  {"first", "1st", "1", "one"},
		SecondTerm: {"second", "2nd", "2", "two"},
		ThirdTerm:  {"third", "3rd", "3", "three"},
	}
	aliases := make(map[string]Term, 3*4*3)
	for term, ws := range words {
		for _, w := range ws {
			aliases[w] = term
			aliases[w+" term"] = term
			aliases["term "+w] = term
		}
	}
	return aliases
}

func sortedKeys(m map[string]Term) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeTermKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ParseTerm accepts the spellings found in fee records ("First", "first term", "1st Term", "Term 1", ...)
// and returns the canonical Term.
func ParseTerm(s string) (Term, error) {
	key := normalizeTermKey(s)
	if key == "" {
		return "", errTermRequired
	}
	if t, ok := termAliases[key]; ok {
		return t, nil
	}
	if hint := closestTerm(key); hint != "" {
		return "", errors.Errorf("unknown term %q, did you mean %q?", s, hint)
	}
	return "", errors.Errorf("unknown term %q", s)
}

// closestTerm suggests the canonical term whose alias is most similar to key.
func closestTerm(key string) Term {
	var best Term
	var bestRatio float64
	for _, alias := range termAliasKeys {
		ratio := difflib.NewMatcher(strings.Split(key, ""), strings.Split(alias, "")).Ratio()
		if ratio > bestRatio {
			best, bestRatio = termAliases[alias], ratio
		}
	}
	if bestRatio < termHintMinSim {
		return ""
	}
	return best
}

func (t Term) index() int {
	for i, term := range Terms {
		if term == t {
			return i
		}
	}
	return -1
}

func (t Term) Valid() bool { return t.index() >= 0 }

func (t Term) String() string { return string(t) }

// Session is an academic year pair such as "2024/2025".
type Session struct {
	StartYear int
}

func NewSession(startYear int) Session {
	return Session{StartYear: startYear}
}

// ParseSession parses "YYYY/YYYY" ("YYYY-YYYY" is tolerated). The second year must follow the first.
func ParseSession(s string) (Session, error) {
	s = core.CleanString(s)
	if s == "" {
		return Session{}, errSessionRequired
	}
	sep := strings.IndexAny(s, "/-")
	if sep < 0 {
		return Session{}, errors.Errorf("invalid session %q, expected YYYY/YYYY", s)
	}
	start, ok := parseYear(s[:sep])
	if !ok {
		return Session{}, errors.Errorf("invalid session %q, expected YYYY/YYYY", s)
	}
	end, ok := parseYear(s[sep+1:])
	if !ok {
		return Session{}, errors.Errorf("invalid session %q, expected YYYY/YYYY", s)
	}
	if end != start+1 {
		return Session{}, errors.Errorf("invalid session %q, years must be consecutive", s)
	}
	return Session{StartYear: start}, nil
}

// parseYear accepts exactly four digits, surrounding spaces aside.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(s)
	return year, err == nil
}

func (s Session) IsZero() bool { return s.StartYear == 0 }

func (s Session) String() string {
	if s.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d/%04d", s.StartYear, s.StartYear+1)
}

func (s Session) Next() Session { return Session{StartYear: s.StartYear + 1} }
func (s Session) Prev() Session { return Session{StartYear: s.StartYear - 1} }

func (s Session) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Session) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = Session{}
		return nil
	}
	parsed, err := ParseSession(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Period identifies one academic term.
type Period struct {
	Term    Term    `json:"term"`
	Session Session `json:"session"`
}

// ParsePeriod normalizes free-text term and session values. Both fields are reported on failure.
func ParsePeriod(term, session string) (Period, error) {
	var flds []core.FieldError
	t, err := ParseTerm(term)
	if err != nil {
		flds = append(flds, core.FieldError{Field: "term", Error: err.Error()})
	}
	s, err := ParseSession(session)
	if err != nil {
		flds = append(flds, core.FieldError{Field: "session", Error: err.Error()})
	}
	if len(flds) > 0 {
		return Period{}, core.NewValidationError(errors.New("invalid period"), flds...)
	}
	return Period{Term: t, Session: s}, nil
}

// MustParsePeriod is ParsePeriod for literals known to be valid; it panics otherwise.
func MustParsePeriod(term, session string) Period {
	p, err := ParsePeriod(term, session)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) IsZero() bool { return p.Term == "" && p.Session.IsZero() }

// Validate reports the period fields that are missing or unknown, prefixing field names with `field`.
func (p Period) Validate(field ...string) error {
	prefix := ""
	if len(field) > 0 && field[0] != "" {
		prefix = field[0] + "."
	}
	var flds []core.FieldError
	if !p.Term.Valid() {
		flds = append(flds, core.FieldError{Field: prefix + "term", Error: "unknown term"})
	}
	if p.Session.IsZero() {
		flds = append(flds, core.FieldError{Field: prefix + "session", Error: errSessionRequired.Error()})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid period"), flds...)
	}
	return nil
}

// Next rotates First -> Second -> Third within a session; Third rolls into First of the next session.
// An invalid period is returned unchanged.
func (p Period) Next() Period {
	i := p.Term.index()
	if i < 0 {
		return p
	}
	if i == len(Terms)-1 {
		return Period{Term: Terms[0], Session: p.Session.Next()}
	}
	return Period{Term: Terms[i+1], Session: p.Session}
}

// Prev is the inverse of Next: First of Y/Y+1 wraps to Third of Y-1/Y.
func (p Period) Prev() Period {
	i := p.Term.index()
	if i < 0 {
		return p
	}
	if i == 0 {
		return Period{Term: Terms[len(Terms)-1], Session: p.Session.Prev()}
	}
	return Period{Term: Terms[i-1], Session: p.Session}
}

func (p Period) String() string {
	return p.Session.String() + " " + p.Term.String()
}

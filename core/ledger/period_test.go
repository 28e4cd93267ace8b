package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

func TestParseTerm(t *testing.T) {
	tests := []struct {
		in      string
		want    Term
		wantErr string
	}{
		{in: "First Term", want: FirstTerm},
		{in: "first", want: FirstTerm},
		{in: "  1st   Term ", want: FirstTerm},
		{in: "Term 1", want: FirstTerm},
		{in: "one", want: FirstTerm},
		{in: "SECOND TERM", want: SecondTerm},
		{in: "2nd", want: SecondTerm},
		{in: "term two", want: SecondTerm},
		{in: "Third", want: ThirdTerm},
		{in: "3", want: ThirdTerm},
		{in: "", wantErr: "term is required"},
		{in: "Frist Term", wantErr: `unknown term "Frist Term", did you mean "First Term"?`},
		{in: "thrid", wantErr: `unknown term "thrid", did you mean "Third Term"?`},
		{in: "summer", wantErr: `unknown term "summer"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTerm(tt.in)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSession(t *testing.T) {
	tests := []struct {
		in      string
		want    Session
		wantErr bool
	}{
		{in: "2024/2025", want: Session{StartYear: 2024}},
		{in: " 2023-2024 ", want: Session{StartYear: 2023}},
		{in: "", wantErr: true},
		{in: "2024", wantErr: true},
		{in: "24/25", wantErr: true},
		{in: "2024/2026", wantErr: true},
		{in: "2025/2024", wantErr: true},
		{in: "abcd/efgh", wantErr: true},
		{in: "2024 / 2025", want: Session{StartYear: 2024}},
		{in: "-2024/2025", wantErr: true},
		{in: "2024//2025", wantErr: true},
		{in: "2024/-2025", wantErr: true},
		{in: "2024/2025/2026", wantErr: true},
		{in: "+202/2025", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSession(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, core.CleanString(tt.in)[:4], got.String()[:4])
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("1st term", "2024/2025")
	require.NoError(t, err)
	assert.Equal(t, Period{Term: FirstTerm, Session: NewSession(2024)}, p)
	assert.Equal(t, "2024/2025 First Term", p.String())

	_, err = ParsePeriod("", "2024")
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T", err)
	require.Len(t, vErr.Fields, 2)
	assert.Equal(t, "term", vErr.Fields[0].Field)
	assert.Equal(t, "session", vErr.Fields[1].Field)
}

func TestPeriod_Validate(t *testing.T) {
	assert.NoError(t, testPeriod.Validate())

	err := Period{}.Validate("from")
	require.Error(t, err)
	vErr := err.(*core.ValidationError)
	require.Len(t, vErr.Fields, 2)
	assert.Equal(t, "from.term", vErr.Fields[0].Field)
	assert.Equal(t, "from.session", vErr.Fields[1].Field)

	assert.Error(t, Period{Term: "Fourth Term", Session: NewSession(2024)}.Validate())
}

func TestPeriod_NextPrev(t *testing.T) {
	tests := []struct {
		name string
		p    Period
		next Period
		prev Period
	}{
		{
			name: "first term keeps the session going forward",
			p:    MustParsePeriod("First Term", "2024/2025"),
			next: MustParsePeriod("Second Term", "2024/2025"),
			prev: MustParsePeriod("Third Term", "2023/2024"),
		},
		{
			name: "second term",
			p:    MustParsePeriod("Second Term", "2024/2025"),
			next: MustParsePeriod("Third Term", "2024/2025"),
			prev: MustParsePeriod("First Term", "2024/2025"),
		},
		{
			name: "third term rolls into the next session",
			p:    MustParsePeriod("Third Term", "2024/2025"),
			next: MustParsePeriod("First Term", "2025/2026"),
			prev: MustParsePeriod("Second Term", "2024/2025"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.next, tt.p.Next())
			assert.Equal(t, tt.prev, tt.p.Prev())
			assert.Equal(t, tt.p, tt.p.Next().Prev())
			assert.Equal(t, tt.p, tt.p.Prev().Next())
		})
	}

	// forward from First of 2024/2025 must not touch the session string
	assert.Equal(t, "2024/2025", MustParsePeriod("First", "2024/2025").Next().Session.String())
}

func TestPeriod_NextPrev_invalid(t *testing.T) {
	for _, p := range []Period{{}, {Term: "Fourth Term", Session: NewSession(2024)}} {
		assert.NotPanics(t, func() {
			assert.Equal(t, p, p.Next())
			assert.Equal(t, p, p.Prev())
		})
	}
}

func TestPeriod_JSON(t *testing.T) {
	data, err := json.Marshal(testPeriod)
	require.NoError(t, err)
	assert.JSONEq(t, `{"term":"First Term","session":"2024/2025"}`, string(data))

	var p Period
	require.NoError(t, json.Unmarshal([]byte(`{"term":"First Term","session":"2023/2024"}`), &p))
	assert.Equal(t, MustParsePeriod("first", "2023/2024"), p)

	assert.Error(t, json.Unmarshal([]byte(`{"term":"First Term","session":"2023/2025"}`), &p))
}

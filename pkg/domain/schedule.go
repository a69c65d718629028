package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

var reQuarter = regexp.MustCompile(`^Q([1-4])\s+(\d{4})$`)

type Quarter struct {
	Q    int
	Year int
}

// ParseQuarter accepts quarter-year tokens of the form "Q3 2025".
func ParseQuarter(s string) (Quarter, error) {
	m := reQuarter.FindStringSubmatch(s)
	if m == nil {
		return Quarter{}, Invalid("start_quarter", `must be like "Q3 2025"`)
	}
	q, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	return Quarter{Q: q, Year: y}, nil
}

// Next wraps Q4 into Q1 of the following year.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Q: 1, Year: q.Year + 1}
	}
	return Quarter{Q: q.Q + 1, Year: q.Year}
}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d %d", q.Q, q.Year)
}

// BuildInstallments splits amountMinor into n equal parts assigned to
// consecutive quarters starting at start. The last installment absorbs the
// rounding remainder so the parts always sum exactly to amountMinor.
func BuildInstallments(amountMinor int64, n int, start Quarter) []Installment {
	per := amountMinor / int64(n)
	out := make([]Installment, 0, n)
	q := start
	var allocated int64
	for i := 0; i < n; i++ {
		amt := per
		if i == n-1 {
			amt = amountMinor - allocated
		}
		out = append(out, Installment{Quarter: q.String(), AmountMinor: amt})
		allocated += amt
		q = q.Next()
	}
	return out
}

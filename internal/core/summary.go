package core

// Summarize totals income and expense amounts of txs in cents. It fails
// with ErrTotalOverflow rather than return a wrapped total.
func Summarize(txs []Transaction) (Stats, error) {
	var (
		st Stats
		ok = true
	)
	for _, t := range txs {
		switch t.Type {
		case Income:
			st.Income, ok = st.Income.CheckedAdd(t.Amount)
		case Expense:
			st.Expense, ok = st.Expense.CheckedAdd(t.Amount)
		}
		if !ok {
			return Stats{}, ErrTotalOverflow
		}
	}
	st.Net, ok = st.Income.CheckedAdd(Money{Cents: -st.Expense.Cents})
	if !ok {
		return Stats{}, ErrTotalOverflow
	}
	return st, nil
}

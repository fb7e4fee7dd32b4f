package game

import "math"

func accrueInterest(next *State) float64 {
	interest := next.Debt * DailyInterestRate
	next.Debt += interest
	next.Lifetime.Interest += interest
	return interest
}

func (e *Engine) takeLoan(s State, amount float64) (State, error) {
	if s.Debt > 0 {
		return s, ErrLoanOutstanding
	}
	if !e.rules.loanAllowed(amount) {
		return s, ErrInvalidLoanAmount
	}
	next := s.Clone()
	next.Cash += amount
	next.Debt += amount
	return next, nil
}

func (e *Engine) repay(s State, amount float64) (State, error) {
	if amount <= 0 || math.IsNaN(amount) {
		return s, ErrInvalidAmount
	}
	if s.Debt <= 0 {
		return s, ErrNoDebt
	}
	if amount > s.Debt {
		amount = s.Debt
	}
	if amount > s.Cash {
		return s, ErrInsufficientFunds
	}
	next := s.Clone()
	next.Cash -= amount
	next.Debt -= amount
	if next.Debt < debtDustThreshold {
		next.Debt = 0
	}
	return next, nil
}

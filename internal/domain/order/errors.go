package order

import "fmt"

// Step names a stage of order placement.
type Step string

const (
	StepLoadBasket      Step = "load_basket"
	StepApplyInventory  Step = "apply_inventory"
	StepApplyDiscount   Step = "apply_discount"
	StepResolveDelivery Step = "resolve_delivery"
	StepChargeWallet    Step = "charge_wallet"
	StepCreditPoints    Step = "credit_points"
	StepPersist         Step = "persist"
)

// StepError reports the first failing step of a placement attempt.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

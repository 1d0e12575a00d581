package form

import "investor_onboarding/internal/model"

// Step шаг многошаговой формы, начиная с 1
type Step int

const (
	StepPersonal Step = iota + 1
	StepBanking
	StepBeneficiaries
	StepInvestment
)

// StepCount is the number of steps; StepInvestment is the last one.
const StepCount = 4

func (s Step) String() string {
	switch s {
	case StepPersonal:
		return "personal"
	case StepBanking:
		return "banking"
	case StepBeneficiaries:
		return "beneficiaries"
	case StepInvestment:
		return "investment"
	}
	return "unknown"
}

// Поля и документы, проверяемые при переходе с шага
var stepFields = map[Step][]string{
	StepPersonal: {
		"fullName", "nationalId", "phone", "email",
		model.DocumentIDFront.Field(), model.DocumentIDBack.Field(),
	},
	StepBanking: {
		"bankName", "customBank", "accountNumber", "accountType",
	},
	StepBeneficiaries: {
		"hasBeneficiaries",
		"beneficiary1Name", "beneficiary1Phone", "beneficiary1Instagram",
		"beneficiary2Name", "beneficiary2Phone", "beneficiary2Instagram",
	},
	StepInvestment: {
		"investmentAmount", "comments", "termsAccepted",
		"isPoliticallyExposed", "exposedPosition",
		model.DocumentPaymentReceipt.Field(), model.DocumentUtilityReceipt.Field(), model.DocumentSignature.Field(),
	},
}

// Fields returns the payload fields owned by s.
func (s Step) Fields() []string {
	return stepFields[s]
}

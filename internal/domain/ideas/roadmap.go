package ideas

type StepCategory string

const (
	CategoryLegal       StepCategory = "legal"
	CategoryPartnership StepCategory = "partnership"
	CategoryTechnical   StepCategory = "technical"
	CategoryMarketing   StepCategory = "marketing"
	CategoryFunding     StepCategory = "funding"
	CategoryValidation  StepCategory = "validation"
)

func (c StepCategory) Valid() bool {
	switch c {
	case CategoryLegal, CategoryPartnership, CategoryTechnical, CategoryMarketing, CategoryFunding, CategoryValidation:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high=0 < medium=1 < low=2. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

func (p Priority) Valid() bool { return p.Rank() < 3 }

type ExecutionStep struct {
	ID            string       `json:"id" yaml:"id"`
	Title         string       `json:"title" yaml:"title"`
	Description   string       `json:"description" yaml:"description"`
	Category      StepCategory `json:"category" yaml:"category"`
	Timeframe     string       `json:"timeframe" yaml:"timeframe"`
	Priority      Priority     `json:"priority" yaml:"priority"`
	Resources     []string     `json:"resources" yaml:"resources"`
	EstimatedCost string       `json:"estimatedCost,omitempty" yaml:"estimatedCost"`
}

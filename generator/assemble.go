package generator

import (
	"errors"

	"auto_report_author/document"
)

// Assembly is an assembled request plus what was reattached to it.
type Assembly struct {
	Prompt   Prompt
	Included []string
	Omitted  []string
	Cost     int
}

// Assemble builds a request from the instruction, the task and as much prior
// material as the budget allows. Instruction and task are always included
// verbatim. Prior sections are taken most recent first and whole; the first one
// that does not fit ends the window, so everything older is dropped too.
func Assemble(instruction string, prior []document.Section, task string, budget Budget) (Assembly, error) {
	if task == "" {
		return Assembly{}, errors.New("task is required")
	}
	base := Prompt{System: instruction, User: renderUser(nil, task)}
	if err := budget.Require(base.System, base.User); err != nil {
		return Assembly{}, err
	}

	window := 0
	best := base
	for n := 1; n <= len(prior); n++ {
		candidate := Prompt{System: instruction, User: renderUser(prior[len(prior)-n:], task)}
		if budget.Cost(candidate) > budget.Capacity {
			break
		}
		window = n
		best = candidate
	}

	asm := Assembly{Prompt: best, Cost: budget.Cost(best)}
	for i, s := range prior {
		if i >= len(prior)-window {
			asm.Included = append(asm.Included, s.ID)
		} else {
			asm.Omitted = append(asm.Omitted, s.ID)
		}
	}
	return asm, nil
}

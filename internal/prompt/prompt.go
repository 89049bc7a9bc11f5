// Package prompt flattens facts, history and the new message into the single
// completion prompt the model sees.
package prompt

import (
	"strings"

	"github.com/ent0n29/tojibot/internal/memory"
)

const DefaultPersona = "Toji"

type Assembler struct {
	// PersonaName labels model turns and the final cue line.
	PersonaName string
}

func New(persona string) Assembler {
	return Assembler{PersonaName: persona}
}

func (a Assembler) persona() string {
	if strings.TrimSpace(a.PersonaName) == "" {
		return DefaultPersona
	}
	return a.PersonaName
}

// Build renders:
//
//	Facts: <facts joined by newline>
//	History: <User:/Persona: lines>
//	Input: <input>
//	<Persona>:
//
// Turns with empty content are left out. Nothing is truncated.
func (a Assembler) Build(facts []string, turns []memory.Turn, input string) string {
	persona := a.persona()

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		switch t.Role {
		case memory.RoleHuman:
			lines = append(lines, "User: "+t.Content)
		case memory.RoleAI:
			lines = append(lines, persona+": "+t.Content)
		}
	}

	var b strings.Builder
	b.WriteString("Facts: ")
	b.WriteString(strings.Join(facts, "\n"))
	b.WriteString("\nHistory: ")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\nInput: ")
	b.WriteString(input)
	b.WriteString("\n")
	b.WriteString(persona)
	b.WriteString(":")
	return b.String()
}

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona holds the in-character strings the bot answers with.
type Persona struct {
	Name          string `yaml:"name"`
	CommandPrefix string `yaml:"command_prefix"`
	GreetTrigger  string `yaml:"greet_trigger"`
	Greeting      string `yaml:"greeting"`
	SilenceReply  string `yaml:"silence_reply"`
	FallbackReply string `yaml:"fallback_reply"`
	EmptyReply    string `yaml:"empty_reply"`
	HelpText      string `yaml:"help_text"`
}

func DefaultPersona() Persona {
	return Persona{
		Name:          "Toji",
		CommandPrefix: "!toji",
		GreetTrigger:  "hello",
		Greeting:      "Yo, it's Toji. What's up?",
		SilenceReply:  "What do you want? I don't have time for silence.",
		FallbackReply: "Something's interfering with my work. I'll be back.",
		EmptyReply:    "I couldn't generate a response right now.",
		HelpText: "**TojiBot Commands**\n\n" +
			"`/chat [message]` - Chat with Toji Fushiguro\n" +
			"`/help` - Show this help message\n\n" +
			"You can also chat with Toji by:\n" +
			"- Using `!toji [message]` in any channel\n" +
			"- Simply saying `hello` to start a conversation\n" +
			"- Sending a direct message to the bot",
	}
}

// LoadPersona reads a YAML persona file. Fields left empty keep their defaults.
func LoadPersona(path string) (Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}
	var p Persona
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	return p.withDefaults(), nil
}

func (p Persona) withDefaults() Persona {
	d := DefaultPersona()
	fill := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	fill(&p.Name, d.Name)
	fill(&p.CommandPrefix, d.CommandPrefix)
	fill(&p.GreetTrigger, d.GreetTrigger)
	fill(&p.Greeting, d.Greeting)
	fill(&p.SilenceReply, d.SilenceReply)
	fill(&p.FallbackReply, d.FallbackReply)
	fill(&p.EmptyReply, d.EmptyReply)
	fill(&p.HelpText, d.HelpText)
	return p
}

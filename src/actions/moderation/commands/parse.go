// Package commands parses "/survey" chat commands and routes them to the
// response lifecycle.
package commands

import (
	"strings"

	"github.com/ltyyb/surveybot/src/shared/survey"
)

// Prefix starts every survey command.
const Prefix = "/survey"

// Kind identifies a parsed command.
type Kind int

const (
	KindUnknown Kind = iota
	KindHelp
	KindEntr
	KindReview
	KindVote
	KindInfo
	KindDisable
	KindEnable
	KindDelete
	KindRestore
	KindPurge
	KindTrust
	KindBan
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindHelp:    "help",
	KindEntr:    "entr",
	KindReview:  "review",
	KindVote:    "vote",
	KindInfo:    "info",
	KindDisable: "disable",
	KindEnable:  "enable",
	KindDelete:  "delete",
	KindRestore: "restore",
	KindPurge:   "purge",
	KindTrust:   "trust",
	KindBan:     "ban",
}

func (k Kind) String() string { return kindNames[k] }

// AdminOnly reports whether the command requires administrator rights.
func (k Kind) AdminOnly() bool {
	switch k {
	case KindDisable, KindEnable, KindDelete, KindRestore, KindPurge, KindTrust, KindBan:
		return true
	}
	return false
}

// Command is one parsed command line.
type Command struct {
	Kind Kind
	// ID is the response identifier argument, short or full.
	ID string
	// Target is the user argument of trust and ban.
	Target string
	Vote   survey.VoteValue
	// Raw holds the original text for unknown commands.
	Raw string
}

// single-argument verbs taking a response identifier
var idVerbs = map[string]Kind{
	"review":  KindReview,
	"info":    KindInfo,
	"disable": KindDisable,
	"enable":  KindEnable,
	"delete":  KindDelete,
	"restore": KindRestore,
	"purge":   KindPurge,
}

var userVerbs = map[string]Kind{
	"trust": KindTrust,
	"ban":   KindBan,
}

// IsCommand reports whether text is addressed to the survey bot.
func IsCommand(text string) bool {
	fields := strings.Fields(text)
	return len(fields) > 0 && strings.EqualFold(fields[0], Prefix)
}

// Parse turns a command line into a Command. Text without the prefix, unknown
// verbs and wrong argument counts yield KindUnknown.
func Parse(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], Prefix) {
		return Command{Kind: KindUnknown, Raw: text}
	}
	args := fields[1:]
	if len(args) == 0 {
		return Command{Kind: KindHelp}
	}

	verb := strings.ToLower(args[0])
	rest := args[1:]
	switch {
	case verb == "help" && len(rest) == 0:
		return Command{Kind: KindHelp}
	case verb == "entr" && len(rest) == 0:
		return Command{Kind: KindEntr}
	case verb == "get" && len(rest) == 1 && strings.EqualFold(rest[0], "entr"):
		return Command{Kind: KindEntr}
	case verb == "vote" && len(rest) == 2:
		value, ok := ParseVote(rest[1])
		if !ok {
			break
		}
		return Command{Kind: KindVote, ID: rest[0], Vote: value}
	}
	if kind, ok := idVerbs[verb]; ok && len(rest) == 1 {
		return Command{Kind: kind, ID: rest[0]}
	}
	if kind, ok := userVerbs[verb]; ok && len(rest) == 1 {
		return Command{Kind: kind, Target: rest[0]}
	}
	return Command{Kind: KindUnknown, Raw: text}
}

// ParseVote accepts a, d, agree, deny, y and n in any case.
func ParseVote(token string) (survey.VoteValue, bool) {
	switch strings.ToLower(token) {
	case "a", "agree", "y", "yes":
		return survey.VoteAgree, true
	case "d", "deny", "n", "no":
		return survey.VoteDeny, true
	}
	return "", false
}

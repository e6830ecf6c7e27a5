// Package providers links every AI provider into the binary.
package providers

import (
	_ "github.com/ltyyb/surveybot/src/ai/gpt4o"
	_ "github.com/ltyyb/surveybot/src/ai/sonnet45"
)

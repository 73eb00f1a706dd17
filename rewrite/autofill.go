package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dealdraft/dealdraft/offer"
)

// ErrEmptyFileContents rejects auto-population without any uploaded content.
var ErrEmptyFileContents = errors.New("file contents are empty")

const autofillPromptTemplate = `Analyze the following file contents and the current offer.
Summarize the key information from the files and update the offer accordingly.
Fill in any blanks or missing information based on the file contents.

File Contents:
%s

Current Offer:
%s

Please provide an updated offer based on this information.
Respond ONLY with the updated offer in markdown format, without any additional commentary.
Do NOT wrap the response in code fences or any other delimiters.`

// Autofill fills in blanks in the current offer from uploaded file contents.
// One single-shot generation, no tool loop, no history, no confirmation:
// strictly request/response, returning a full replacement document.
func Autofill(ctx context.Context, generator offer.TextGenerator, fileContents, currentOffer string) (string, error) {
	if ctx == nil {
		return "", offer.ErrContextNil
	}
	if generator == nil {
		return "", errors.New("autofill: text generator is required")
	}
	if strings.TrimSpace(fileContents) == "" {
		return "", ErrEmptyFileContents
	}

	prompt := fmt.Sprintf(autofillPromptTemplate, fileContents, currentOffer)
	updated, err := generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("autofill: %w", err)
	}
	if strings.TrimSpace(updated) == "" {
		return "", fmt.Errorf("autofill: %w", offer.ErrGenerationFailed)
	}
	return updated, nil
}

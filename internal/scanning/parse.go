package scanning

import (
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/zombor/expense-snap/internal/retry"
)

// textScanPrompt is shared by the vision model engines
const textScanPrompt = `You are a text recognition engine. Read every piece of text visible in the image, including prices, dates, store names and payment details, in any language.

Return each separate line of text as its own entry, in reading order (top to bottom, left to right). For each entry report:
- "text": the exact text as printed, without translation or correction
- "confidence": how sure you are the text is correct, from 0.0 to 1.0
- "box": the pixel bounding box of the text as {"x": left, "y": top, "width": w, "height": h}

Return ONLY valid JSON in this exact format:
{
  "blocks": [
    {"text": "Example", "confidence": 0.95, "box": {"x": 0, "y": 0, "width": 10, "height": 10}}
  ]
}

Important:
- If there is no text, return {"blocks": []}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

type blocksResponse struct {
	Blocks []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Box        struct {
			X      int `json:"x"`
			Y      int `json:"y"`
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"box"`
	} `json:"blocks"`
}

// parseBlocksJSON parses a model response into raw text units
func parseBlocksJSON(text string) ([]RawText, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found in response", retry.ErrMalformedData)
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("%w: invalid JSON object in response", retry.ErrMalformedData)
	}
	text = text[startIdx : endIdx+1]

	var resp blocksResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %w", retry.ErrMalformedData, err)
	}

	units := make([]RawText, 0, len(resp.Blocks))
	for _, b := range resp.Blocks {
		t := strings.TrimSpace(b.Text)
		if t == "" {
			continue
		}
		units = append(units, RawText{
			Text:       t,
			Confidence: clamp01(b.Confidence),
			Box:        image.Rect(b.Box.X, b.Box.Y, b.Box.X+b.Box.Width, b.Box.Y+b.Box.Height),
		})
	}
	return units, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

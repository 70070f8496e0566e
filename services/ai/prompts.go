package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/customeros/rfpstack/dto"
)

const (
	draftSystemPrompt = `You are a procurement assistant deciding whether a conversation describes a Request for Proposal (RFP).
Analyze the entire conversation, not only the last message. Details are often given over several messages.
Respond with a single JSON object and nothing else.`

	extractionSystemPrompt = `You are a procurement analyst reading a vendor's reply to an RFP.
Extract the commercial terms of the offer and score how well it answers the RFP.
Respond with a single JSON object and nothing else.`

	comparisonSystemPrompt = `You are a procurement analyst comparing vendor proposals for one RFP.
Rank every vendor, recommend a winner and explain the trade-offs.
Respond with a single JSON object and nothing else.`
)

// FormatHistory renders timeline lines as "Role: content" lines.
func FormatHistory(history []dto.ChatLine) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("CONVERSATION HISTORY:\n")
	for _, line := range history {
		sb.WriteString(line.Role.PromptLabel())
		sb.WriteString(": ")
		sb.WriteString(line.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func buildDraftPrompt(request dto.DraftRequest) string {
	var sb strings.Builder

	if request.ExistingRfp != nil {
		fmt.Fprintf(&sb, `This conversation already has an RFP that the user wants to change.
CURRENT RFP:
- Title: %q
- Description: %q

Work out which changes are requested and return the full updated RFP, not only the difference.
`, request.ExistingRfp.Title, request.ExistingRfp.Description)
	} else {
		sb.WriteString("There is no RFP yet. The user is starting or continuing to describe a new one.\n")
	}

	sb.WriteString("\n")
	sb.WriteString(FormatHistory(request.History))
	fmt.Fprintf(&sb, "\nNEW USER MESSAGE: %q\n", request.Message)

	sb.WriteString(`
Decide whether the user describes a procurement need: what to buy, quantities, specifications, budget, timeline.

If it is an RFP set isRfp to true, write a professional email subject for vendors and a detailed email body with every gathered requirement.
If it is not, set isRfp to false and use reason to guide the user or ask for the missing details.

RESPONSE FORMAT:
{
  "isRfp": boolean,
  "emailSubject": string | null,
  "emailBody": string | null,
  "reason": string | null
}
`)
	return sb.String()
}

func buildExtractionPrompt(request dto.ExtractionRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "RFP TITLE: %s\nRFP DESCRIPTION:\n%s\n\n", request.Rfp.Title, request.Rfp.Description)
	fmt.Fprintf(&sb, "VENDOR EMAIL:\n%s\n", request.EmailBody)
	if strings.TrimSpace(request.AttachmentText) != "" {
		fmt.Fprintf(&sb, "\nATTACHMENT TEXT:%s\n", request.AttachmentText)
	}

	sb.WriteString(`
Use null for anything the vendor did not state. price is the total price as a number without currency symbols.
deliveryDays is an integer number of days. aiScore is between 0 and 1 and measures how completely and competitively the offer answers the RFP.

RESPONSE FORMAT:
{
  "price": number | null,
  "deliveryDays": integer | null,
  "warranty": string | null,
  "paymentTerms": string | null,
  "notes": string | null,
  "aiSummary": string | null,
  "aiScore": number
}
`)
	return sb.String()
}

func buildComparisonPrompt(request dto.ComparisonRequest) (string, error) {
	bids, err := json.MarshalIndent(request.Bids, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "RFP TITLE: %s\nRFP DESCRIPTION:\n%s\n\n", request.Rfp.Title, request.Rfp.Description)
	fmt.Fprintf(&sb, "VENDOR BIDS:\n%s\n", bids)
	sb.WriteString(`
Rank every vendor exactly once, starting at rank 1 for the best offer. The winner must be the rank 1 vendor.

RESPONSE FORMAT:
{
  "winner": {"name": string, "reason": string},
  "comparisonSummary": string,
  "rankings": [{"vendorName": string, "rank": integer, "pros": [string], "cons": [string]}]
}
`)
	return sb.String(), nil
}

package ai

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/dto"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/utils"
)

var (
	draftKeys      = []string{"isRfp", "emailSubject", "emailBody", "reason"}
	extractionKeys = []string{"price", "deliveryDays", "warranty", "paymentTerms", "notes", "aiSummary", "aiScore"}
	comparisonKeys = []string{"winner", "comparisonSummary", "rankings"}
	winnerKeys     = []string{"name", "reason"}
	rankingKeys    = []string{"vendorName", "rank", "pros", "cons"}
)

// stripCodeFences removes a surrounding ``` or ```json fence.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if newline := strings.IndexByte(content, '\n'); newline >= 0 && !strings.ContainsAny(content[:newline], "{[") {
		content = content[newline+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// requireKeys checks that raw is an object holding exactly the given keys.
func requireKeys(raw []byte, keys []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrapf(errs.ErrOracleResponse, "not a json object: %v", err)
	}
	if fields == nil {
		return nil, errors.Wrap(errs.ErrOracleResponse, "null object")
	}
	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			return nil, errors.Wrapf(errs.ErrOracleResponse, "missing key %q", key)
		}
	}
	if len(fields) != len(keys) {
		for key := range fields {
			if !utils.IsStringInSlice(key, keys) {
				return nil, errors.Wrapf(errs.ErrOracleResponse, "unexpected key %q", key)
			}
		}
	}
	return fields, nil
}

func decodeInto(raw []byte, target interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errors.Wrapf(errs.ErrOracleResponse, "%v", err)
	}
	return nil
}

func decodeDraft(content string) (*dto.DraftResult, error) {
	raw := []byte(stripCodeFences(content))
	if _, err := requireKeys(raw, draftKeys); err != nil {
		return nil, err
	}

	var result dto.DraftResult
	if err := decodeInto(raw, &result); err != nil {
		return nil, err
	}

	if result.IsRfp {
		if isBlank(result.EmailSubject) || isBlank(result.EmailBody) {
			return nil, errors.Wrap(errs.ErrOracleResponse, "rfp without subject or body")
		}
	} else if isBlank(result.Reason) {
		return nil, errors.Wrap(errs.ErrOracleResponse, "non-rfp answer without reason")
	}
	return &result, nil
}

func decodeExtraction(content string) (*dto.ExtractionResult, error) {
	raw := []byte(stripCodeFences(content))
	fields, err := requireKeys(raw, extractionKeys)
	if err != nil {
		return nil, err
	}
	if string(bytes.TrimSpace(fields["aiScore"])) == "null" {
		return nil, errors.Wrap(errs.ErrOracleResponse, "aiScore is null")
	}

	var result dto.ExtractionResult
	if err := decodeInto(raw, &result); err != nil {
		return nil, err
	}
	if result.DeliveryDays != nil && *result.DeliveryDays < 0 {
		return nil, errors.Wrap(errs.ErrOracleResponse, "negative deliveryDays")
	}
	if result.Price != nil && *result.Price < 0 {
		return nil, errors.Wrap(errs.ErrOracleResponse, "negative price")
	}
	result.AiScore = utils.ClampScore(result.AiScore)
	return &result, nil
}

func decodeComparison(content string) (*dto.ComparisonResult, error) {
	raw := []byte(stripCodeFences(content))
	fields, err := requireKeys(raw, comparisonKeys)
	if err != nil {
		return nil, err
	}
	if _, err = requireKeys(fields["winner"], winnerKeys); err != nil {
		return nil, err
	}

	var rankings []json.RawMessage
	if err = json.Unmarshal(fields["rankings"], &rankings); err != nil {
		return nil, errors.Wrapf(errs.ErrOracleResponse, "rankings: %v", err)
	}
	if len(rankings) == 0 {
		return nil, errors.Wrap(errs.ErrOracleResponse, "empty rankings")
	}
	for _, ranking := range rankings {
		if _, err = requireKeys(ranking, rankingKeys); err != nil {
			return nil, err
		}
	}

	var result dto.ComparisonResult
	if err = decodeInto(raw, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Winner.Name) == "" {
		return nil, errors.Wrap(errs.ErrOracleResponse, "winner without name")
	}

	seen := make(map[int]bool, len(result.Rankings))
	for _, ranking := range result.Rankings {
		if ranking.Rank < 1 || ranking.Rank > len(result.Rankings) || seen[ranking.Rank] {
			return nil, errors.Wrapf(errs.ErrOracleResponse, "rank %d outside 1..%d or repeated", ranking.Rank, len(result.Rankings))
		}
		seen[ranking.Rank] = true
	}
	sort.SliceStable(result.Rankings, func(i, j int) bool {
		return result.Rankings[i].Rank < result.Rankings[j].Rank
	})
	return &result, nil
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

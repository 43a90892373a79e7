package detector

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"

	"github.com/markdave123-py/phiscan/internal/core"
)

// MaxTextBytes is the detection service's request size limit.
const MaxTextBytes = 5000

// ComprehendAPI is the part of the Comprehend client the detector calls.
type ComprehendAPI interface {
	DetectPiiEntities(ctx context.Context, params *comprehend.DetectPiiEntitiesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectPiiEntitiesOutput, error)
}

var _ ComprehendAPI = (*comprehend.Client)(nil)

// Comprehend detects PII with AWS Comprehend DetectPiiEntities.
type Comprehend struct {
	client ComprehendAPI
}

var _ core.Detector = (*Comprehend)(nil)

func NewComprehend(awsCfg aws.Config) *Comprehend {
	return &Comprehend{client: comprehend.NewFromConfig(awsCfg)}
}

func NewComprehendWithAPI(api ComprehendAPI) *Comprehend {
	return &Comprehend{client: api}
}

// Detect submits text in one request. Offsets in the response are
// character offsets into text.
func (c *Comprehend) Detect(ctx context.Context, text, language string) ([]core.DetectedEntity, error) {
	out, err := c.client.DetectPiiEntities(ctx, &comprehend.DetectPiiEntitiesInput{
		Text:         aws.String(text),
		LanguageCode: types.LanguageCode(language),
	})
	if err != nil {
		return nil, fmt.Errorf("comprehend detect pii: %w", err)
	}

	entities := make([]core.DetectedEntity, 0, len(out.Entities))
	for _, e := range out.Entities {
		if e.BeginOffset == nil || e.EndOffset == nil {
			return nil, fmt.Errorf("comprehend returned %s entity without offsets", e.Type)
		}
		entities = append(entities, core.DetectedEntity{
			Type:        string(e.Type),
			Score:       float64(aws.ToFloat32(e.Score)),
			BeginOffset: int(aws.ToInt32(e.BeginOffset)),
			EndOffset:   int(aws.ToInt32(e.EndOffset)),
		})
	}
	return entities, nil
}

package detector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/detector"
)

type mockComprehend struct {
	fn func(*comprehend.DetectPiiEntitiesInput) (*comprehend.DetectPiiEntitiesOutput, error)
}

func (m *mockComprehend) DetectPiiEntities(_ context.Context, in *comprehend.DetectPiiEntitiesInput, _ ...func(*comprehend.Options)) (*comprehend.DetectPiiEntitiesOutput, error) {
	return m.fn(in)
}

func TestComprehend_Detect(t *testing.T) {
	var got *comprehend.DetectPiiEntitiesInput
	api := &mockComprehend{fn: func(in *comprehend.DetectPiiEntitiesInput) (*comprehend.DetectPiiEntitiesOutput, error) {
		got = in
		return &comprehend.DetectPiiEntitiesOutput{Entities: []types.PiiEntity{
			{Type: types.PiiEntityTypeName, Score: aws.Float32(0.5), BeginOffset: aws.Int32(0), EndOffset: aws.Int32(4)},
			{Type: types.PiiEntityTypeEmail, Score: aws.Float32(1), BeginOffset: aws.Int32(10), EndOffset: aws.Int32(22)},
		}}, nil
	}}

	entities, err := detector.NewComprehendWithAPI(api).Detect(context.Background(), "Jane wrote jane@doe.org", "en")
	require.NoError(t, err)
	assert.Equal(t, "Jane wrote jane@doe.org", aws.ToString(got.Text))
	assert.Equal(t, types.LanguageCodeEn, got.LanguageCode)
	assert.Equal(t, []core.DetectedEntity{
		{Type: "NAME", Score: 0.5, BeginOffset: 0, EndOffset: 4},
		{Type: "EMAIL", Score: 1, BeginOffset: 10, EndOffset: 22},
	}, entities)
}

func TestComprehend_Errors(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		boom := errors.New("TextSizeLimitExceededException")
		api := &mockComprehend{fn: func(*comprehend.DetectPiiEntitiesInput) (*comprehend.DetectPiiEntitiesOutput, error) {
			return nil, boom
		}}
		_, err := detector.NewComprehendWithAPI(api).Detect(context.Background(), "x", "en")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing offsets", func(t *testing.T) {
		api := &mockComprehend{fn: func(*comprehend.DetectPiiEntitiesInput) (*comprehend.DetectPiiEntitiesOutput, error) {
			return &comprehend.DetectPiiEntitiesOutput{Entities: []types.PiiEntity{{Type: types.PiiEntityTypeSsn}}}, nil
		}}
		_, err := detector.NewComprehendWithAPI(api).Detect(context.Background(), "x", "en")
		assert.Error(t, err)
	})
}

type stubLLM struct {
	reply    string
	err      error
	jsonMode bool
}

func (s *stubLLM) Generate(_ context.Context, _, _ string, jsonMode bool) (string, error) {
	s.jsonMode = jsonMode
	return s.reply, s.err
}

func TestGemini_Detect(t *testing.T) {
	llm := &stubLLM{reply: `{"entities":[
		{"type":"name","text":"José","score":0.9},
		{"type":"NAME","text":"José","score":0.8},
		{"type":"PHONE","text":"not in text","score":0.7},
		{"type":"COLOR","text":"red","score":0.7}
	]}`}

	entities, err := detector.NewGemini(llm).Detect(context.Background(), "José met José in a red car", "en")
	require.NoError(t, err)
	assert.True(t, llm.jsonMode)
	assert.Equal(t, []core.DetectedEntity{
		{Type: "NAME", Score: 0.9, BeginOffset: 0, EndOffset: 4},
		{Type: "NAME", Score: 0.8, BeginOffset: 9, EndOffset: 13},
	}, entities)
}

func TestGemini_BadJSON(t *testing.T) {
	_, err := detector.NewGemini(&stubLLM{reply: "not json"}).Detect(context.Background(), "x", "en")
	assert.Error(t, err)

	entities, err := detector.NewGemini(&stubLLM{reply: "  "}).Detect(context.Background(), "x", "en")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestEntityTypes(t *testing.T) {
	catalogue := detector.EntityTypes()
	require.NotEmpty(t, catalogue)
	for i := 1; i < len(catalogue); i++ {
		assert.Less(t, catalogue[i-1].Name, catalogue[i].Name)
	}
	assert.True(t, detector.IsEntityType("SSN"))
	assert.False(t, detector.IsEntityType("ALL"))

	for _, et := range catalogue {
		if et.Name == "EMAIL" {
			assert.Contains(t, et.Description, "email address")
		}
	}
}

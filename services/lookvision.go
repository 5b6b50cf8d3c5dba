package services

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// LLMModelName selects the Gemini model backing a vision request.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite-preview-06-17"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.0-flash"
	}
}

func floatPointer(f float32) *float32 {
	return &f
}

type LLMResponse struct {
	Response           string `json:"response"`
	InputTokenCount    int32  `json:"input_token_count"`
	Thoughts           string `json:"thoughts"`
	ThoughtsTokenCount int32  `json:"thoughts_token_count"`
	OutputTokenCount   int32  `json:"output_token_count"`
	TotalTokenCount    int32  `json:"total_token_count"`
}

// LookVisionResponse is the JSON contract the look-analysis prompt asks the
// model to fill. The worker persists these fields on the look record; the
// recommendation pipeline only ever reads the persisted values.
type LookVisionResponse struct {
	QualityScore   float64  `json:"quality_score"`
	FullOutfit     bool     `json:"full_outfit"`
	DominantColors []string `json:"dominant_colors"`
	DetectedItems  []string `json:"detected_items"`
	OccasionHint   string   `json:"occasion_hint"`
}

// GarmentVisionResponse is the JSON contract for single-garment photo tagging.
type GarmentVisionResponse struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Formality      string `json:"formality"`
	Season         string `json:"season"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	Pattern        string `json:"pattern"`
	Material       string `json:"material"`
}

type LookVisionProvider interface {
	AnalyzeLookPhoto(filePath string, modelName LLMModelName) (*LLMResponse, error)
	AnalyzeGarmentPhoto(filePath string, modelName LLMModelName) (*LLMResponse, error)
}

type GeminiVisionService struct{}

func tryUploadGoogleStorage(ctx context.Context, client *genai.Client, filePath string, newName *string) (*genai.File, error) {
	var genFile *genai.File
	var err error
	maxUploadTimes := 3
	for i := range maxUploadTimes {
		config := &genai.UploadFileConfig{}
		if newName != nil {
			config = &genai.UploadFileConfig{
				Name: *newName,
			}
		}

		genFile, err = client.Files.UploadFromPath(ctx, filePath, config)
		if err == nil {
			fmt.Println("File uploaded successfully:", filePath, "Attempt:", i+1)
			return genFile, nil
		}
		fmt.Printf("Error uploading file %s, attempt %d: %v\n", filePath, i+1, err)
	}
	return nil, fmt.Errorf("failed to upload file to google storage after %d attempts: %s", maxUploadTimes, filePath)
}

const lookAnalysisPrompt = `Analyze this outfit photo. Respond with a single JSON object, no markdown fences:
{"quality_score": <0.0-1.0 photo quality and outfit visibility>, "full_outfit": <true when the photo shows a complete head-to-toe outfit>, "dominant_colors": [<up to 5 hex colors like "#1B2A4A", most dominant first>], "detected_items": [<garment categories visible, from: top, bottom, outerwear, footwear, accessory, dress, suit>], "occasion_hint": "<one short phrase for where this outfit would fit, e.g. office, dinner date, gym>"}
If the photo shows no clothing at all return {"quality_score": 0, "full_outfit": false, "dominant_colors": [], "detected_items": [], "occasion_hint": ""}.`

const garmentAnalysisPrompt = `Analyze this single clothing item photo. Respond with a single JSON object, no markdown fences:
{"name": "<short descriptive name>", "category": "<one of: top, bottom, outerwear, footwear, accessory, dress, suit>", "formality": "<one of: athletic, casual, smart_casual, party, business, formal>", "season": "<one of: spring, summer, autumn, winter, all>", "primary_color": "<hex like #1B2A4A>", "secondary_color": "<hex or empty string>", "pattern": "<solid, striped, floral, plaid, print or empty>", "material": "<main fabric or empty>"}`

func (GeminiVisionService) AnalyzeLookPhoto(filePath string, modelName LLMModelName) (*LLMResponse, error) {
	return generateFromImage(filePath, modelName, lookAnalysisPrompt,
		"You are a fashion stylist assistant. Describe only what is visible. Output strictly the requested JSON.")
}

func (GeminiVisionService) AnalyzeGarmentPhoto(filePath string, modelName LLMModelName) (*LLMResponse, error) {
	return generateFromImage(filePath, modelName, garmentAnalysisPrompt,
		"You are a wardrobe cataloguing assistant. Classify the clothing item. Output strictly the requested JSON.")
}

func generateFromImage(filePath string, modelName LLMModelName, prompt string, systemInstruction string) (*LLMResponse, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	genFile, err := tryUploadGoogleStorage(ctx, client, filePath, nil)
	if err != nil {
		fmt.Println("Error uploading photo file:", filePath, err)
		return nil, fmt.Errorf("error uploading photo file %s: %v", filePath, err)
	}

	parts := []*genai.Part{
		{
			FileData: &genai.FileData{
				FileURI:  genFile.URI,
				MIMEType: genFile.MIMEType,
			},
		},
		{Text: prompt},
	}

	result, err := client.Models.GenerateContent(ctx, modelName.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		MaxOutputTokens: 8000,
		Temperature:     floatPointer(0.3),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: systemInstruction},
			},
		},
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("%v", err)
	}

	if result.PromptFeedback != nil {
		fmt.Println(result.PromptFeedback.BlockReason)
		fmt.Println(result.PromptFeedback.BlockReasonMessage)
		return nil, fmt.Errorf("content violation: %s %s", filePath, result.PromptFeedback.BlockReasonMessage)
	}

	for _, c := range result.Candidates {
		for _, rating := range c.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content violation: photo blocked for %s", rating.Category)
			}
		}
	}

	response := &LLMResponse{Response: result.Text()}
	if result.UsageMetadata != nil {
		response.InputTokenCount = result.UsageMetadata.PromptTokenCount
		response.ThoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		response.OutputTokenCount = result.UsageMetadata.CandidatesTokenCount
		response.TotalTokenCount = result.UsageMetadata.TotalTokenCount
		fmt.Println("Input token count:", response.InputTokenCount)
		fmt.Println("Output token count:", response.OutputTokenCount)
		fmt.Println("Total token count:", response.TotalTokenCount)
	}
	return response, nil
}

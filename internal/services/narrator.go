package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-neows/internal/clients"
	"go-neows/internal/domain"
	"go-neows/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const recentApproaches = 5

// Analysis outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

const systemPrompt = `You are an expert astronomer with a dark sense of humor. ` +
	`Explain complex asteroid data in simple, engaging terms with witty sarcasm and dark humor. ` +
	`Be accurate, educational, and entertaining. You always answer with a single JSON object and nothing else.`

const userPromptTemplate = `Analyze this asteroid data and provide a comprehensive, darkly humorous explanation.

ASTEROID DATA:
%s

Respond with ONLY a JSON object, no markdown and no commentary, with exactly these fields:
{
  "summary": "a darkly humorous summary of what this asteroid is and why it matters",
  "riskAssessment": "a risk assessment that jokes about the end of the world but stays informative",
  "interestingFacts": ["five facts, each with dark humor"],
  "technicalDetails": "the technical details in layman's terms, with dark humor",
  "recommendations": "recommendations with dark humor, ending with: If this asteroid hits us, the best last song to play before the world ends would be: [Song Name] by [Artist] - [YouTube link to the song]"
}

Be creative with the song. Avoid the obvious end-of-the-world picks like "It's The End Of The World As We Know It" by R.E.M.
Pick something unexpected but fitting, from any genre or decade: songs about space, time, life or death,
an ironic choice, or occasionally something peaceful for contrast.

Keep it engaging and easy to understand for non-scientists.`

// TextGenerator produces free text for a prompt
type TextGenerator interface {
	Generate(ctx context.Context, p clients.Prompt) (string, error)
}

// NarratorConfig bounds the generated output
type NarratorConfig struct {
	MaxTokens   int
	Temperature float32
}

// AiNarrator turns an object into a structured, generated analysis
type AiNarrator struct {
	gen     TextGenerator
	cfg     NarratorConfig
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewAiNarrator creates a narrator over gen
func NewAiNarrator(gen TextGenerator, cfg NarratorConfig, m *metrics.Metrics, log zerolog.Logger) *AiNarrator {
	return &AiNarrator{gen: gen, cfg: cfg, metrics: m, log: log}
}

// Analyze generates an analysis of neo. Provider failures are returned as
// AnalysisFailedError; unparseable output degrades to UnavailableAnalysis.
func (n *AiNarrator) Analyze(ctx context.Context, neo *domain.NearEarthObject) (domain.AsteroidAnalysis, error) {
	prompt, err := BuildPrompt(neo)
	if err != nil {
		n.metrics.Analysis(OutcomeFailed)
		return domain.AsteroidAnalysis{}, &domain.AnalysisFailedError{Err: err}
	}
	prompt.MaxTokens = n.cfg.MaxTokens
	prompt.Temperature = n.cfg.Temperature

	text, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		n.metrics.Analysis(OutcomeFailed)
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return domain.AsteroidAnalysis{}, err
		}
		n.log.Error().Err(err).Str("asteroid_id", neo.ID).Msg("analysis generation failed")
		return domain.AsteroidAnalysis{}, &domain.AnalysisFailedError{Err: err}
	}

	analysis, ok := parseAnalysis(text)
	if !ok {
		n.metrics.Analysis(OutcomeDegraded)
		n.log.Warn().Str("asteroid_id", neo.ID).Int("chars", len(text)).Msg("analysis response was not valid JSON, using fallback")
		return analysis, nil
	}
	n.metrics.Analysis(OutcomeOK)
	return analysis, nil
}

type orbitSummary struct {
	OrbitClass    *domain.OrbitClass `json:"orbit_class"`
	OrbitalPeriod string             `json:"orbital_period"`
	Eccentricity  string             `json:"eccentricity"`
	SemiMajorAxis string             `json:"semi_major_axis"`
	Inclination   string             `json:"inclination"`
}

type asteroidSummary struct {
	ID                             string                   `json:"id"`
	Name                           string                   `json:"name"`
	Designation                    string                   `json:"designation,omitempty"`
	AbsoluteMagnitudeH             float64                  `json:"absolute_magnitude_h"`
	EstimatedDiameter              domain.EstimatedDiameter `json:"estimated_diameter"`
	IsPotentiallyHazardousAsteroid bool                     `json:"is_potentially_hazardous_asteroid"`
	IsSentryObject                 bool                     `json:"is_sentry_object"`
	CloseApproachData              []domain.CloseApproach   `json:"close_approach_data"`
	OrbitalData                    *orbitSummary            `json:"orbital_data"`
}

// summarize keeps identity, size and hazard fields, the most recent close
// approaches and a reduced orbit.
func summarize(neo *domain.NearEarthObject) asteroidSummary {
	approaches := neo.CloseApproachData
	if len(approaches) > recentApproaches {
		approaches = approaches[len(approaches)-recentApproaches:]
	}
	if approaches == nil {
		approaches = []domain.CloseApproach{}
	}

	s := asteroidSummary{
		ID:                             neo.ID,
		Name:                           neo.Name,
		Designation:                    neo.Designation,
		AbsoluteMagnitudeH:             neo.AbsoluteMagnitudeH,
		EstimatedDiameter:              neo.EstimatedDiameter,
		IsPotentiallyHazardousAsteroid: neo.IsPotentiallyHazardousAsteroid,
		IsSentryObject:                 neo.IsSentryObject,
		CloseApproachData:              approaches,
	}
	if o := neo.OrbitalData; o != nil {
		s.OrbitalData = &orbitSummary{
			OrbitClass:    o.OrbitClass,
			OrbitalPeriod: o.OrbitalPeriod,
			Eccentricity:  o.Eccentricity,
			SemiMajorAxis: o.SemiMajorAxis,
			Inclination:   o.Inclination,
		}
	}
	return s
}

// BuildPrompt renders the fixed analysis prompt for neo
func BuildPrompt(neo *domain.NearEarthObject) (clients.Prompt, error) {
	data, err := json.MarshalIndent(summarize(neo), "", "  ")
	if err != nil {
		return clients.Prompt{}, fmt.Errorf("encode asteroid summary: %w", err)
	}
	return clients.Prompt{
		System: systemPrompt,
		User:   fmt.Sprintf(userPromptTemplate, data),
	}, nil
}

// UnavailableAnalysis is returned when generated text cannot be parsed
func UnavailableAnalysis() domain.AsteroidAnalysis {
	return domain.AsteroidAnalysis{
		Summary:          "Analysis unavailable",
		RiskAssessment:   "Risk assessment unavailable",
		InterestingFacts: []string{},
		TechnicalDetails: "Technical details unavailable",
		Recommendations:  "No specific recommendations",
	}
}

// ParseAIResponse parses generated text into an analysis. It never fails;
// text that is not a complete analysis object yields UnavailableAnalysis.
func ParseAIResponse(text string) domain.AsteroidAnalysis {
	a, _ := parseAnalysis(text)
	return a
}

type rawAnalysis struct {
	Summary          *string   `json:"summary"`
	RiskAssessment   *string   `json:"riskAssessment"`
	InterestingFacts *[]string `json:"interestingFacts"`
	TechnicalDetails *string   `json:"technicalDetails"`
	Recommendations  *string   `json:"recommendations"`
}

func parseAnalysis(text string) (domain.AsteroidAnalysis, bool) {
	body := stripCodeFence(text)
	if body == "" {
		return UnavailableAnalysis(), false
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return UnavailableAnalysis(), false
	}
	if raw.Summary == nil || raw.RiskAssessment == nil || raw.InterestingFacts == nil ||
		raw.TechnicalDetails == nil || raw.Recommendations == nil {
		return UnavailableAnalysis(), false
	}

	return domain.AsteroidAnalysis{
		Summary:          *raw.Summary,
		RiskAssessment:   *raw.RiskAssessment,
		InterestingFacts: *raw.InterestingFacts,
		TechnicalDetails: *raw.TechnicalDetails,
		Recommendations:  *raw.Recommendations,
	}, true
}

// stripCodeFence unwraps a single ```json ... ``` block
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

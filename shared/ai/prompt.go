package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"adindex/internal/models"
	"adindex/shared/config"
)

// Dimension describes one axis of the assessment framework as it is
// presented to the model.
type Dimension struct {
	Weight       float64  `json:"weight"`
	Indicators   []string `json:"indicators"`
	HuName       string   `json:"hu_name"`
	HuIndicators []string `json:"hu_indicators"`
}

// Framework is the full assessment framework embedded into every prompt.
// Field names and dimension names are consumed verbatim by the parser and
// the store; changing them is a schema change.
var Framework = map[string]Dimension{
	models.DimClimate: {
		Weight: 0.25,
		Indicators: []string{
			"Sustainability messaging presence and authenticity",
			"Absence of greenwashing or exaggerated claims",
			"Climate-positive products/behaviors shown",
			"Transparency in environmental framing",
		},
		HuName: "Klímafelelősség",
		HuIndicators: []string{
			"Fenntarthatósági üzenetek jelenléte és hitelessége",
			"Zöldre festés és túlzó állítások hiánya",
			"Klímapozitív termékek/viselkedések bemutatása",
			"Átláthatóság a környezeti kommunikációban",
		},
	},
	models.DimSocial: {
		Weight: 0.25,
		Indicators: []string{
			"Diversity in representation (gender, race, age, body type, ability)",
			"Avoidance of harmful stereotypes",
			"Empowering depiction of underrepresented groups",
			"Inclusive language and messaging",
		},
		HuName: "Társadalmi Felelősség",
		HuIndicators: []string{
			"Sokszínűség a megjelenítésben (nem, faj, kor, testalkat, képesség)",
			"Káros sztereotípiák elkerülése",
			"Alulreprezentált csoportok megerősítő ábrázolása",
			"Befogadó nyelvezet és üzenet",
		},
	},
	models.DimCultural: {
		Weight: 0.25,
		Indicators: []string{
			"Respectful use of cultural symbols and traditions",
			"Sensitivity to local norms and values",
			"Awareness of geopolitical contexts",
			"Balance between global and local resonance",
		},
		HuName: "Kulturális Érzékenység",
		HuIndicators: []string{
			"Kulturális szimbólumok és hagyományok tiszteletteljes használata",
			"Érzékenység a helyi normák és értékek iránt",
			"Geopolitikai kontextusok tudatossága",
			"Egyensúly a globális és helyi rezonancia között",
		},
	},
	models.DimEthical: {
		Weight: 0.25,
		Indicators: []string{
			"Transparency in intent and disclosures",
			"Avoidance of manipulative techniques",
			"Truthful and verifiable claims",
			"Encouragement of informed choice over exploitation",
		},
		HuName: "Etikus Kommunikáció",
		HuIndicators: []string{
			"Átláthatóság a szándékban és közlésekben",
			"Manipulatív technikák elkerülése",
			"Igazolható és valós állítások",
			"Tájékozott döntéshozatal ösztönzése a kizsákmányolás helyett",
		},
	},
}

// frameworkJSON is the framework serialized once at startup so every prompt
// embeds the identical text (map marshaling sorts keys, so the output is
// stable).
var frameworkJSON = mustMarshalFramework()

func mustMarshalFramework() string {
	data, err := json.MarshalIndent(Framework, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("framework serialization failed: %v", err))
	}
	return string(data)
}

// hungarianDiacritics are the characters counted by the language heuristic.
const hungarianDiacritics = "áéíóöőúüűÁÉÍÓÖŐÚÜŰ"

// hungarianStopwords is the fixed stop-word set of the heuristic.
var hungarianStopwords = []string{
	"és", "hogy", "van", "nem", "egy", "az", "ezt", "csak", "még", "vagy",
}

// DetectLanguage classifies ad copy as 'hu' or 'en'. This is a coarse
// best-effort heuristic over script cues and a small stop-word list, not
// authoritative locale detection; it knows only the two languages the
// index has observed.
func DetectLanguage(text string, cfg *config.LanguageConfig) string {
	diacritics := 0
	for _, r := range text {
		if strings.ContainsRune(hungarianDiacritics, r) {
			diacritics++
		}
	}

	lower := strings.ToLower(text)
	stopwords := 0
	for _, word := range hungarianStopwords {
		if strings.Contains(lower, word) {
			stopwords++
		}
	}

	if diacritics > cfg.DiacriticThreshold || stopwords > cfg.StopwordThreshold {
		return "hu"
	}
	return "en"
}

// BuildImagePrompt constructs the instruction text for a static ad.
// Bilingual output is requested when the ad is Hungarian or the caller
// forces it. Deterministic for identical inputs.
func BuildImagePrompt(adCopy, adLanguage string, bilingual bool) string {
	if bilingual || adLanguage == "hu" {
		return fmt.Sprintf(bilingualImagePrompt, adCopy, frameworkJSON, adLanguage)
	}
	return fmt.Sprintf(englishImagePrompt, adCopy, frameworkJSON)
}

// BuildVideoPrompt constructs the instruction text for a video ad. The
// video schema is strictly additive to the image schema: the same
// four-dimension core plus transcript, scenes and temporal analysis.
func BuildVideoPrompt(adCopy, adLanguage string) string {
	context := adCopy
	if context == "" {
		context = "None"
	}

	huFindings := ""
	huStrengths := ""
	huConcerns := ""
	huRecommendations := ""
	if adLanguage == "hu" {
		huFindings = ",\n            \"findings_hu\": [\"magyar megállapítás 1\", \"...\"]"
		huStrengths = "\n        \"strengths_hu\": [\"erősség 1\", \"...\"],"
		huConcerns = "\n        \"concerns_hu\": [\"aggály 1\", \"...\"],"
		huRecommendations = ",\n        \"recommendations_hu\": [\"ajánlás 1\", \"...\"]"
	}

	return fmt.Sprintf(videoPrompt,
		adLanguage,
		context,
		frameworkJSON,
		adLanguage,
		huFindings, huFindings, huFindings, huFindings,
		huStrengths, huConcerns, huRecommendations,
	)
}

const englishImagePrompt = `You are an expert in responsible advertising assessment. Analyze this advertisement across four key dimensions.

ADVERTISEMENT COPY:
%s

FRAMEWORK:
%s

Please analyze this ad and provide:

1. A score (0-100) for each of the four dimensions:
   - Climate Responsibility
   - Social Responsibility
   - Cultural Sensitivity
   - Ethical Communication

2. For each dimension, provide:
   - The score
   - 2-3 key findings (both strengths and risks)
   - Specific examples from the ad

3. An overall Responsibility Score (weighted average of the four dimensions)

4. A summary with:
   - Top 3 strengths
   - Top 3 areas of concern or risk
   - 2-3 recommendations for improvement

Please return your response in this EXACT JSON format (no markdown, just pure JSON):
{
    "overall_score": <number 0-100>,
    "ad_language": "en",
    "dimensions": {
        "Climate Responsibility": {
            "score": <number 0-100>,
            "findings": ["finding 1", "finding 2", "finding 3"]
        },
        "Social Responsibility": {
            "score": <number 0-100>,
            "findings": ["finding 1", "finding 2", "finding 3"]
        },
        "Cultural Sensitivity": {
            "score": <number 0-100>,
            "findings": ["finding 1", "finding 2", "finding 3"]
        },
        "Ethical Communication": {
            "score": <number 0-100>,
            "findings": ["finding 1", "finding 2", "finding 3"]
        }
    },
    "summary": {
        "strengths": ["strength 1", "strength 2", "strength 3"],
        "concerns": ["concern 1", "concern 2", "concern 3"],
        "recommendations": ["rec 1", "rec 2", "rec 3"]
    }
}

Be specific and reference actual elements from the ad copy and image.`

const bilingualImagePrompt = `You are an expert in responsible advertising assessment. Analyze this advertisement across four key dimensions.

IMPORTANT: This ad may be in Hungarian. Please provide your analysis in BOTH English and Hungarian for maximum accessibility.

ADVERTISEMENT COPY:
%s

FRAMEWORK / KERETRENDSZER:
%s

Please analyze this ad and provide:

1. A score (0-100) for each of the four dimensions:
   - Climate Responsibility / Klímafelelősség
   - Social Responsibility / Társadalmi Felelősség
   - Cultural Sensitivity / Kulturális Érzékenység
   - Ethical Communication / Etikus Kommunikáció

2. For each dimension, provide:
   - The score
   - 2-3 key findings in BOTH English and Hungarian (both strengths and risks)
   - Specific examples from the ad

3. An overall Responsibility Score (weighted average of the four dimensions)

4. A summary with:
   - Top 3 strengths (in both English and Hungarian)
   - Top 3 areas of concern or risk (in both English and Hungarian)
   - 2-3 recommendations for improvement (in both English and Hungarian)

CRITICAL: For Hungarian ads, be sensitive to Hungarian cultural context, local norms, and language nuances.

Please return your response in this EXACT JSON format (no markdown, just pure JSON):
{
    "overall_score": <number 0-100>,
    "ad_language": "%s",
    "dimensions": {
        "Climate Responsibility": {
            "score": <number 0-100>,
            "findings": ["finding 1 (EN)", "finding 2 (EN)", "finding 3 (EN)"],
            "findings_hu": ["megállapítás 1 (HU)", "megállapítás 2 (HU)", "megállapítás 3 (HU)"]
        },
        "Social Responsibility": {
            "score": <number 0-100>,
            "findings": ["finding 1 (EN)", "finding 2 (EN)", "finding 3 (EN)"],
            "findings_hu": ["megállapítás 1 (HU)", "megállapítás 2 (HU)", "megállapítás 3 (HU)"]
        },
        "Cultural Sensitivity": {
            "score": <number 0-100>,
            "findings": ["finding 1 (EN)", "finding 2 (EN)", "finding 3 (EN)"],
            "findings_hu": ["megállapítás 1 (HU)", "megállapítás 2 (HU)", "megállapítás 3 (HU)"]
        },
        "Ethical Communication": {
            "score": <number 0-100>,
            "findings": ["finding 1 (EN)", "finding 2 (EN)", "finding 3 (EN)"],
            "findings_hu": ["megállapítás 1 (HU)", "megállapítás 2 (HU)", "megállapítás 3 (HU)"]
        }
    },
    "summary": {
        "strengths": ["strength 1 (EN)", "strength 2 (EN)", "strength 3 (EN)"],
        "strengths_hu": ["erősség 1 (HU)", "erősség 2 (HU)", "erősség 3 (HU)"],
        "concerns": ["concern 1 (EN)", "concern 2 (EN)", "concern 3 (EN)"],
        "concerns_hu": ["aggály 1 (HU)", "aggály 2 (HU)", "aggály 3 (HU)"],
        "recommendations": ["rec 1 (EN)", "rec 2 (EN)", "rec 3 (EN)"],
        "recommendations_hu": ["ajánlás 1 (HU)", "ajánlás 2 (HU)", "ajánlás 3 (HU)"]
    }
}

Be specific and reference actual elements from the ad copy and image. For Hungarian content, maintain cultural sensitivity and understanding of local context.`

const videoPrompt = `You are an expert in responsible advertising assessment.
Analyze this VIDEO advertisement across four key dimensions.

CRITICAL INSTRUCTIONS FOR VIDEO ANALYSIS:

1. VISUAL ANALYSIS:
   - Watch the ENTIRE video carefully
   - Note all visual elements: people, products, environments, text overlays
   - Identify brand messages shown on screen
   - Look for greenwashing visual cues (nature imagery, green colors without substance)
   - Assess diversity and representation

2. AUDIO ANALYSIS:
   - Transcribe ALL dialogue and voiceover
   - Detect the language (appears to be %s)
   - Note music, tone, and sound effects
   - Identify any audio claims or promises

3. TEMPORAL ANALYSIS:
   - Identify 3-5 key scenes/moments in the video
   - Note how messaging evolves from beginning to end
   - Flag any contradictions (e.g., empowering start, manipulative end)
   - Look for fast disclaimers or buried warnings

4. INTEGRATION:
   - Compare what's SHOWN vs. what's SAID
   - Flag mismatches between visual and audio messaging
   - Identify misleading combinations

Additional context provided: %s

FRAMEWORK - Assess across these dimensions:
%s

Return JSON in this EXACT format:
{
    "overall_score": <0-100>,
    "detected_language": "%s",
    "duration_analyzed": "<video length in seconds>",
    "transcript": "Full transcription with key timestamps like [0:15] Speaker: ...",
    "dimensions": {
        "Climate Responsibility": {
            "score": <0-100>,
            "findings": ["finding 1 with specific video evidence", "finding 2", "finding 3"]%s
        },
        "Social Responsibility": {
            "score": <0-100>,
            "findings": ["finding 1", "finding 2", "finding 3"]%s
        },
        "Cultural Sensitivity": {
            "score": <0-100>,
            "findings": ["finding 1", "finding 2", "finding 3"]%s
        },
        "Ethical Communication": {
            "score": <0-100>,
            "findings": ["finding 1", "finding 2", "finding 3"]%s
        }
    },
    "scenes": [
        {
            "timestamp": "0:00-0:30",
            "description": "Opening scene description with visual and audio details",
            "visual_elements": ["element 1", "element 2"],
            "audio_content": "What is said or heard",
            "climate_score": <0-100>,
            "social_score": <0-100>,
            "cultural_score": <0-100>,
            "ethical_score": <0-100>,
            "overall_scene_score": <0-100>
        }
    ],
    "summary": {
        "strengths": ["strength 1 with video timestamp reference", "strength 2", "strength 3"],%s
        "concerns": ["concern 1 with timestamp", "concern 2", "concern 3"],%s
        "recommendations": ["recommendation 1", "recommendation 2", "recommendation 3"]%s
    },
    "temporal_analysis": {
        "messaging_evolution": "Describe how the message changes from beginning to end",
        "key_moments": [
            {"timestamp": "0:45", "event": "Brief disclaimer appears"},
            {"timestamp": "1:30", "event": "Tone shifts from empowering to manipulative"}
        ],
        "audio_visual_alignment": "consistent" or "contradictory",
        "pacing_notes": "Analysis of timing, emphasis, and what's rushed vs. highlighted"
    }
}

Be specific and reference ACTUAL elements from the video with timestamps.`

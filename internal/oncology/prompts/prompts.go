package prompts

import (
	"fmt"
	"strings"

	"oncology-assist-backend/internal/models"
)

const Disclaimer = "This system provides AI-assisted risk analysis and is not a substitute for professional medical diagnosis."

// NoFindings is what the search summariser answers when the results hold
// nothing worth passing on.
const NoFindings = "NO_FINDINGS"

const (
	DoctorStyle  = "Provide detailed clinical interpretation with biomarkers and differential diagnosis."
	PatientStyle = "Explain findings in simple language for patient. Be reassuring but factual."
)

var CASE_ANALYSIS_PROMPT = `
<SYSTEM>
  <IDENTITY>
    You are an oncology AI specialist supporting patients and clinicians.
  </IDENTITY>

  <TASK>
    When given a medical report, lab values or a description of a specific case, provide:
    - Risk Level
    - Key Findings
    - Explanation
    - Recommended Next Steps

    When the input is a general cancer topic rather than a case, provide:
    - Definition
    - Causes
    - Early symptoms
    - Screening methods
    - Prevention
  </TASK>

  <RULES>
    Use the reference passages when they are relevant. Ignore them when they are not.
    Treat an auxiliary risk score as one signal among others, never as a diagnosis.
    Do not invent values that are not present in the input.
    Recommend consulting a qualified clinician for any decision.
  </RULES>
</SYSTEM>
`

var WEB_SEARCH_PROMPT = `
<SYSTEM>
  <IDENTITY>
    You search the web for the latest medical and cancer-related information.
  </IDENTITY>

  <TASK>
    You receive a user question and raw web search results.
    Extract the facts that help answer the question as a short bullet list.
    Mention the source site next to each fact when it is available.
  </TASK>

  <RULES>
    Only use facts that appear in the results.
    If the results contain nothing relevant, answer exactly: ` + NoFindings + `
  </RULES>
</SYSTEM>
`

var KNOWLEDGE_PROMPT = `
<SYSTEM>
  <IDENTITY>
    You provide structured educational explanations about cancer topics.
  </IDENTITY>

  <RULES>
    Be medically accurate and informative.
    When recent findings are provided, incorporate them and say where they add to the general picture.
    Keep the tone calm. Do not diagnose the reader.
  </RULES>
</SYSTEM>
`

const TRANSCRIBE_INSTRUCTION = "Transcribe all text in this medical document image exactly. " +
	"Keep table rows on one line each and preserve units and reference ranges. Return only the transcription."

// StyleFor returns the role-conditioned style instruction.
func StyleFor(role models.UserRole) string {
	if role == models.RoleDoctor {
		return DoctorStyle
	}
	return PatientStyle
}

// CasePrompt builds the user message for a case analysis.
func CasePrompt(role models.UserRole, text string, auxiliaryScore *float64, references []string) string {
	var sb strings.Builder
	sb.WriteString(StyleFor(role))
	sb.WriteString("\n\nAnalyze this medical case:\n\n")
	sb.WriteString(text)

	if auxiliaryScore != nil {
		fmt.Fprintf(&sb, "\n\nAuxiliary risk model score: %.4f", *auxiliaryScore)
	}

	if len(references) > 0 {
		sb.WriteString("\n\n<REFERENCES>\n")
		for i, ref := range references {
			fmt.Fprintf(&sb, "[%d] %s\n", i+1, ref)
		}
		sb.WriteString("</REFERENCES>")
	}
	return sb.String()
}

// SearchPrompt hands raw search output to the summariser.
func SearchPrompt(query, rawResults string) string {
	return fmt.Sprintf("Question: %s\n\n<RESULTS>\n%s\n</RESULTS>", query, rawResults)
}

// TopicPrompt asks for the topic explanation, with findings when present.
func TopicPrompt(query, findings string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the user input about the symptoms and provide a medically accurate explanation about the following cancer-related topic:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nInclude:\n- Definition\n- Causes\n- Early symptoms\n- Screening methods\n- Prevention")
	if findings != "" {
		sb.WriteString("\n\nIncorporate these recent findings from a web search:\n")
		sb.WriteString(findings)
	}
	return sb.String()
}

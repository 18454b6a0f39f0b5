// Package summary compresses a patient's record history into one
// physician-readable structured summary: serialize history into a prompt,
// call a text-generation model once, and deterministically split the reply
// into named sections.
//
// The prompt and the splitter agree on a single marker convention: markdown
// headers of the form "# Patient Summary". The splitter tolerates the
// formatting drift models produce (bold markers, deeper header levels,
// scrambled section order) but a missing header simply yields an empty
// section, never an error.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hengadev/medikeep"
	"github.com/hengadev/medikeep/internal/textutil"
)

// The four fixed section headers, in the order the prompt requests them.
const (
	HeaderPatientSummary = "# Patient Summary"
	HeaderMedications    = "# Active Medications"
	HeaderFindings       = "# Important Findings"
	HeaderAlerts         = "# Alerts"
)

// FallbackText is the human-readable string substituted for the summary when
// the model call fails. The UI displays it instead of crashing; the error
// itself is still returned to the caller.
const FallbackText = "Summary is currently unavailable. Please try again later."

// TextModel is the text-generation model boundary: prompt in, free text out.
// No structural contract on the reply beyond the four-header convention the
// prompt requests.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Pipeline is the history-to-clinical-summary conversion flow.
type Pipeline struct {
	model        TextModel
	excerptLimit int
	logger       zerolog.Logger
}

// New creates a summary pipeline. excerptLimit bounds how many characters of
// extracted text each record contributes to the prompt; values <= 0 fall
// back to the package default.
func New(model TextModel, excerptLimit int, logger zerolog.Logger) *Pipeline {
	if excerptLimit <= 0 {
		excerptLimit = medikeep.DefaultExcerptLimit
	}
	return &Pipeline{
		model:        model,
		excerptLimit: excerptLimit,
		logger:       logger.With().Str("component", "summary").Logger(),
	}
}

// BuildPrompt serializes the record history into the model prompt.
//
// Records must already be sorted ascending by CreatedAt (oldest first, for
// narrative coherence); the pipeline does not sort. Each record contributes
// its creation date, type, title, a "name dosage" medicine list when
// present, and an excerpt of its extracted text truncated at the configured
// budget. The prompt closes with the instruction to answer under exactly the
// four fixed headers.
func (p *Pipeline) BuildPrompt(records []medikeep.HistoryRecord) string {
	var b strings.Builder
	b.WriteString("You are a medical AI assistant.\n")
	b.WriteString("Summarize the following patient history for a treating doctor.\n\n")

	for _, r := range records {
		fmt.Fprintf(&b, "Date: %s\n", r.CreatedAt.Format("2006-01-02"))
		fmt.Fprintf(&b, "Type: %s\n", r.Type)
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		if len(r.Medicines) > 0 {
			names := make([]string, 0, len(r.Medicines))
			for _, m := range r.Medicines {
				names = append(names, strings.TrimSpace(m.Name+" "+m.Dosage))
			}
			fmt.Fprintf(&b, "Medicines: %s\n", strings.Join(names, ", "))
		}
		if r.PersonalNotes != "" {
			fmt.Fprintf(&b, "Notes: %s\n", r.PersonalNotes)
		}
		fmt.Fprintf(&b, "Extracted Text: %s\n\n", textutil.Truncate(r.ExtractedText, p.excerptLimit))
	}

	fmt.Fprintf(&b,
		"Answer using exactly these four markdown headers, in this order:\n%s\n%s\n%s\n%s\n",
		HeaderPatientSummary, HeaderMedications, HeaderFindings, HeaderAlerts)
	return b.String()
}

// Summarize builds the prompt, calls the model once, and splits the reply.
//
// On a transport or model failure the returned sections carry FallbackText
// in PatientSummary so a UI has something safe to display, and the error is
// returned alongside for explicit handling. There is no retry.
func (p *Pipeline) Summarize(ctx context.Context, records []medikeep.HistoryRecord) (medikeep.ClinicalSummarySections, error) {
	if len(records) == 0 {
		return medikeep.ClinicalSummarySections{
			PatientSummary: "No medical records available.",
		}, nil
	}

	raw, err := p.model.GenerateText(ctx, p.BuildPrompt(records))
	if err != nil {
		p.logger.Error().Err(err).Msg("summary generation failed")
		return medikeep.ClinicalSummarySections{PatientSummary: FallbackText},
			fmt.Errorf("%w: %v", medikeep.ErrModelUnavailable, err)
	}

	return SplitSections(raw), nil
}

// SplitSections deterministically splits a model reply into the four fixed
// sections.
//
// The text is first normalized (bold markers removed, nested headers
// collapsed to a single '#'). Each header is then searched independently and
// case-insensitively from the start of the text, so a degenerate reply that
// scrambles the requested order still yields every section it contains. A
// section runs from its header to the next "\n#" or the end of text. Missing
// headers yield empty strings.
func SplitSections(raw string) medikeep.ClinicalSummarySections {
	clean := textutil.NormalizeHeaders(raw)

	return medikeep.ClinicalSummarySections{
		PatientSummary: extractSection(clean, HeaderPatientSummary),
		Medications:    extractSection(clean, HeaderMedications),
		Findings:       extractSection(clean, HeaderFindings),
		Alerts:         extractSection(clean, HeaderAlerts),
	}
}

func extractSection(text, header string) string {
	idx := indexFold(text, header)
	if idx < 0 {
		return ""
	}

	after := text[idx+len(header):]
	if next := strings.Index(after, "\n#"); next >= 0 {
		after = after[:next]
	}
	return strings.TrimSpace(strings.TrimPrefix(after, ":"))
}

// indexFold is a case-insensitive strings.Index. Headers are ASCII, so
// lowering both sides is enough.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

// BuildOverview derives the deterministic, model-free record overview: the
// medicines from the most recent prescription count as active, joined by the
// three most recent non-prescription reports.
//
// Records are expected newest-first here (display order), matching how the
// history screen hands them over.
func BuildOverview(records []medikeep.HistoryRecord) medikeep.RecordOverview {
	overview := medikeep.RecordOverview{TotalRecords: len(records)}

	for _, r := range records {
		if r.Type == medikeep.RecordTypePrescription {
			overview.ActiveMedicines = r.Medicines
			break
		}
	}

	for _, r := range records {
		if r.Type == medikeep.RecordTypePrescription {
			continue
		}
		overview.RecentReports = append(overview.RecentReports, r)
		if len(overview.RecentReports) == 3 {
			break
		}
	}

	return overview
}

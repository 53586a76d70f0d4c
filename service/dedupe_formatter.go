package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ludo-technologies/simdup/domain"
)

// DedupeFormatterImpl implements the DedupeOutputFormatter interface
type DedupeFormatterImpl struct {
	utils *FormatUtils
}

// NewDedupeFormatter creates a new dedupe formatter
func NewDedupeFormatter() *DedupeFormatterImpl {
	return &DedupeFormatterImpl{utils: NewFormatUtils()}
}

// Write formats the response in the requested format
func (f *DedupeFormatterImpl) Write(response *domain.DedupeResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText, "":
		return writeString(writer, f.formatText(response))
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		return f.writeCSV(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *DedupeFormatterImpl) formatText(response *domain.DedupeResponse) string {
	var b strings.Builder
	u := f.utils
	st := response.Statistics

	b.WriteString(u.FormatMainHeader("Near-Duplicate Candidates"))

	b.WriteString(u.FormatSectionHeader("Summary"))
	if st != nil {
		b.WriteString(u.FormatLabel("Files", u.FormatCount(st.Files)))
		b.WriteString(u.FormatLabel("Records", u.FormatCount(st.Records)))
		b.WriteString(u.FormatLabel("Items", u.FormatCount(st.Items)))
		b.WriteString(u.FormatLabel("Failures", u.FormatCount(st.Failures)))
		b.WriteString(u.FormatLabel("Empty items", u.FormatCount(st.EmptyItems)))
		b.WriteString(u.FormatLabel("Sketch", fmt.Sprintf("%s (L=%d)", st.SketchType, st.NumPerm)))
		b.WriteString(u.FormatLabel("Params", fmt.Sprintf("%s (%s)", st.Params, st.ParamsSource)))
		b.WriteString(u.FormatLabel("Expected FP / FN", fmt.Sprintf("%s / %s", u.FormatFloat(st.ExpectedFP), u.FormatFloat(st.ExpectedFN))))
		b.WriteString(u.FormatLabel("Buckets", u.FormatCount(st.Buckets)))
		b.WriteString(u.FormatLabel("Largest bucket", u.FormatCount(st.MaxBucketSize)))
		b.WriteString(u.FormatLabel("Candidate pairs", u.FormatCount(st.CandidatePairs)))
		b.WriteString(u.FormatLabel("Reported pairs", u.FormatCount(st.ReportedPairs)))
	}
	b.WriteString(u.FormatLabel("Duration", u.FormatDuration(response.Duration)))
	b.WriteString(u.FormatSectionSeparator())

	if ev := response.Evaluation; ev != nil {
		b.WriteString(u.FormatSectionHeader("Evaluation"))
		b.WriteString(u.FormatLabel("Duplicate groups", u.FormatCount(ev.Groups)))
		b.WriteString(u.FormatLabel("Duplicate pairs", u.FormatCount(ev.DuplicatePairs)))
		b.WriteString(u.FormatLabel("Duplicates found", u.FormatCount(ev.DuplicatesFound)))
		b.WriteString(u.FormatLabel("Pair quality", u.FormatPercentage(ev.PairQuality)))
		b.WriteString(u.FormatLabel("Pair completeness", u.FormatPercentage(ev.PairCompleteness)))
		b.WriteString(u.FormatLabel("F1", u.FormatPercentage(ev.F1)))
		b.WriteString(u.FormatLabel("Comparisons", u.FormatPercentage(ev.FractionOfComparisons*100)))
		b.WriteString(u.FormatSectionSeparator())
	}

	b.WriteString(u.FormatSectionHeader("Candidate pairs"))
	if len(response.Pairs) == 0 {
		b.WriteString("  No candidate pairs.\n")
	}
	for _, p := range response.Pairs {
		mark := ""
		if p.Duplicate {
			mark = "  [duplicate]"
		}
		fmt.Fprintf(&b, "%s%.3f  %s  %s%s\n", strings.Repeat(" ", SectionPadding), p.Similarity, p.A, p.B, mark)
	}

	if len(response.Failures) > 0 {
		b.WriteString(u.FormatSectionSeparator())
		b.WriteString(u.FormatSectionHeader("Failures"))
		for _, fl := range response.Failures {
			fmt.Fprintf(&b, "%s%s#%d: %s\n", strings.Repeat(" ", SectionPadding), fl.Source, fl.Index, fl.Error)
		}
	}
	return b.String()
}

func (f *DedupeFormatterImpl) writeCSV(response *domain.DedupeResponse, writer io.Writer) error {
	rows := make([][]string, 0, len(response.Pairs))
	for _, p := range response.Pairs {
		rows = append(rows, []string{
			p.A,
			p.B,
			strconv.FormatFloat(p.Similarity, 'f', 6, 64),
			strconv.FormatBool(p.Duplicate),
		})
	}
	return WriteCSV(writer, []string{"a", "b", "similarity", "duplicate"}, rows)
}

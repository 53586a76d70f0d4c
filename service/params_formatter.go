package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ludo-technologies/simdup/domain"
)

// ParamsFormatterImpl implements the ParamsOutputFormatter interface
type ParamsFormatterImpl struct {
	utils *FormatUtils
}

// NewParamsFormatter creates a new params formatter
func NewParamsFormatter() *ParamsFormatterImpl {
	return &ParamsFormatterImpl{utils: NewFormatUtils()}
}

// WriteParams writes one optimizer result
func (f *ParamsFormatterImpl) WriteParams(response *domain.ParamsResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText, "":
		u := f.utils
		var b strings.Builder
		b.WriteString(u.FormatMainHeader("Band Parameters"))
		b.WriteString(u.FormatLabel("Threshold", response.Threshold))
		b.WriteString(u.FormatLabel("Num perm", response.NumPerm))
		b.WriteString(u.FormatLabel("Amplified", response.Amplified))
		b.WriteString(u.FormatLabel("Params", response.Params))
		b.WriteString(u.FormatLabel("Weighted error", u.FormatFloat(response.Error)))
		b.WriteString(u.FormatLabel("False positive area", u.FormatFloat(response.FP)))
		b.WriteString(u.FormatLabel("False negative area", u.FormatFloat(response.FN)))
		b.WriteString(u.FormatLabel("Effective threshold", fmt.Sprintf("%.3f", response.EffectiveThreshold)))
		if response.Cached {
			b.WriteString(u.FormatLabel("Source", "cache"))
		} else {
			b.WriteString(u.FormatLabel("Source", "search"))
			b.WriteString(u.FormatLabel("Candidates", fmt.Sprintf("%s enumerated, %s scored",
				u.FormatCount(response.Enumerated), u.FormatCount(response.Scored))))
		}
		return writeString(writer, b.String())
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		return WriteCSV(writer,
			[]string{"threshold", "num_perm", "amplified", "b1", "r1", "b2", "r2", "error", "fp", "fn", "cached"},
			[][]string{{
				formatFloat(response.Threshold),
				strconv.Itoa(response.NumPerm),
				strconv.FormatBool(response.Amplified),
				strconv.Itoa(response.Params.Bands[0]),
				strconv.Itoa(response.Params.Rows[0]),
				strconv.Itoa(response.Params.Bands[1]),
				strconv.Itoa(response.Params.Rows[1]),
				formatFloat(response.Error),
				formatFloat(response.FP),
				formatFloat(response.FN),
				strconv.FormatBool(response.Cached),
			}})
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// WritePrecompute writes the outcome of a precompute run
func (f *ParamsFormatterImpl) WritePrecompute(response *domain.PrecomputeResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText, "", domain.OutputFormatCSV:
		u := f.utils
		var b strings.Builder
		b.WriteString(u.FormatMainHeader("Parameter Cache"))
		b.WriteString(u.FormatLabel("Cache", response.CachePath))
		b.WriteString(u.FormatLabel("Computed", u.FormatCount(response.Computed)))
		b.WriteString(u.FormatLabel("Already cached", u.FormatCount(response.Cached)))
		b.WriteString(u.FormatLabel("Records", u.FormatCount(response.Records)))
		b.WriteString(u.FormatLabel("Duration", u.FormatDuration(response.Duration)))
		return writeString(writer, b.String())
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// WriteReport writes the annotated cache records
func (f *ParamsFormatterImpl) WriteReport(response *domain.ReportResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatText, "":
		return writeString(writer, f.formatReportText(response))
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		rows := make([][]string, 0, len(response.Records))
		for _, r := range response.Records {
			rows = append(rows, []string{
				formatFloat(r.Threshold),
				strconv.Itoa(r.NumPerm),
				strconv.FormatBool(r.Amplified),
				strconv.Itoa(r.B1),
				strconv.Itoa(r.R1),
				strconv.Itoa(r.B2),
				strconv.Itoa(r.R2),
				formatFloat(r.FalsePositive),
				formatFloat(r.FalseNegative),
				formatFloat(r.WeightedError),
				formatChange(r.PercentageChange),
			})
		}
		return WriteCSV(writer,
			[]string{"threshold", "num_perm", "amplified", "b1", "r1", "b2", "r2", "false_positive", "false_negative", "weighted_error", "percentage_change"},
			rows)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *ParamsFormatterImpl) formatReportText(response *domain.ReportResponse) string {
	u := f.utils
	var b strings.Builder
	b.WriteString(u.FormatMainHeader("Parameter Report"))
	b.WriteString(u.FormatLabel("Cache", response.CachePath))
	b.WriteString(u.FormatLabel("Records", u.FormatCount(len(response.Records))))
	b.WriteString(u.FormatSectionSeparator())

	if len(response.Records) == 0 {
		b.WriteString("No cached parameters.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%-9s %-8s %-9s %-24s %-10s %-10s %-10s %s\n",
		"THRESHOLD", "NUM_PERM", "AMPLIFIED", "PARAMS", "FP", "FN", "ERROR", "CHANGE")
	for _, r := range response.Records {
		change := "-"
		if r.PercentageChange != nil {
			change = u.FormatPercentage(*r.PercentageChange)
		}
		fmt.Fprintf(&b, "%-9.2f %-8d %-9t %-24s %-10.6f %-10.6f %-10.6f %s\n",
			r.Threshold, r.NumPerm, r.Amplified, r.Params.String(),
			r.FalsePositive, r.FalseNegative, r.WeightedError, change)
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatChange(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func writeString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return domain.NewOutputError("failed to write text output", err)
	}
	return nil
}

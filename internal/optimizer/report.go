package optimizer

// Annotated is a cached record with its error recomputed under equal
// weights.
type Annotated struct {
	Record
	B1 int `json:"b1" yaml:"b1"`
	R1 int `json:"r1" yaml:"r1"`
	B2 int `json:"b2" yaml:"b2"`
	R2 int `json:"r2" yaml:"r2"`

	FalsePositive float64 `json:"false_positive" yaml:"false_positive"`
	FalseNegative float64 `json:"false_negative" yaml:"false_negative"`
	WeightedError float64 `json:"weighted_error" yaml:"weighted_error"`

	// PercentageChange compares with the previous record sharing the
	// threshold and num_perm: (previous-current)/current*100. Nil for the
	// first record of each pair or when the current error is 0.
	PercentageChange *float64 `json:"percentage_change,omitempty" yaml:"percentage_change,omitempty"`
}

type reportKey struct {
	threshold float64
	numPerm   int
}

// Annotate computes the false positive and negative areas of every record
// and how much the error moved against the previous record with the same
// threshold and num_perm, typically the other amplification setting.
func Annotate(records []Record) []Annotated {
	out := make([]Annotated, 0, len(records))
	prev := make(map[reportKey]float64)

	for _, rec := range records {
		e, fp, fn := WeightedError(rec.Params, rec.Threshold, DefaultFPWeight, DefaultFNWeight)
		a := Annotated{
			Record:        rec,
			B1:            rec.Params.Bands[0],
			R1:            rec.Params.Rows[0],
			B2:            rec.Params.Bands[1],
			R2:            rec.Params.Rows[1],
			FalsePositive: fp,
			FalseNegative: fn,
			WeightedError: e,
		}
		key := reportKey{threshold: RoundThreshold(rec.Threshold), numPerm: rec.NumPerm}
		if p, ok := prev[key]; ok && e != 0 {
			a.PercentageChange = ptr((p - e) / e * 100)
		}
		prev[key] = e
		out = append(out, a)
	}
	return out
}

package estimator_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gfrcli/internal/estimator"
	"gfrcli/internal/table"
)

func ExampleEstimate() {
	rate := estimator.Estimate(50, 1, 1, 1.0)
	fmt.Printf("%.2f\n", rate)
	// Output: 71.13
}

func ExampleEstimator_Apply() {
	t := table.New(
		[]string{"Age", "Female", "African American", "sCR Pre", "sCR Post"},
		[][]string{{"50", "0", "0", "1.0", "0"}},
	)
	e := estimator.New(1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, _ := e.Apply(context.Background(), t)
	fmt.Println(t.Header[5:])
	fmt.Printf("%.4s %q\n", t.Rows[0][5], t.Rows[0][6])
	fmt.Println(result.Invalid, result.Issues[0].Reason)
	// Output:
	// [GMR Pre GMR Post]
	// 79.0 ""
	// 1 sCR Post: must be greater than 0
}

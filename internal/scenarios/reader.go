// Package scenarios reads data-driven test scenarios from Excel workbooks.
//
// Each row of the first sheet describes one scenario: a test id, an optional
// country and trial status, and up to ten action/parameter pairs
// (action_1..action_10, param_1..param_10).
package scenarios

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxSteps = 10

// defaultTrialStatus is used when the trial_status cell is empty.
const defaultTrialStatus = "None"

type Step struct {
	Action string
	Param  string
}

type Scenario struct {
	TestID      string
	Description string
	Country     string
	TrialStatus string
	Steps       []Step
}

// ReadFile parses scenarios from the first sheet of an Excel workbook. Rows
// without a test_id are skipped with a warning.
func ReadFile(path string) ([]Scenario, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening scenarios file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := map[string]int{}
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := header["test_id"]; !ok {
		return nil, fmt.Errorf("sheet %q has no test_id column", sheet)
	}

	cell := func(row []string, name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	log := zap.S().Named("scenarios")
	var scenarios []Scenario
	for i, row := range rows[1:] {
		testID := cell(row, "test_id")
		if testID == "" {
			log.Warnw("skipping row without test_id", "row", i+2)
			continue
		}

		sc := Scenario{
			TestID:      testID,
			Description: cell(row, "description"),
			Country:     strings.ToLower(cell(row, "country")),
			TrialStatus: cell(row, "trial_status"),
		}
		if sc.TrialStatus == "" {
			sc.TrialStatus = defaultTrialStatus
		}

		for n := 1; n <= maxSteps; n++ {
			action := cell(row, fmt.Sprintf("action_%d", n))
			if action == "" {
				break
			}
			sc.Steps = append(sc.Steps, Step{
				Action: action,
				Param:  cell(row, fmt.Sprintf("param_%d", n)),
			})
		}

		scenarios = append(scenarios, sc)
	}

	return scenarios, nil
}

package benchmarks

import (
	_ "embed"
	"fmt"

	"github.com/zeu5/grid-driving-vi/driving"
	"gopkg.in/yaml.v3"
)

//go:embed testcases.yaml
var testCasesYAML []byte

// TestCase is a sample road together with the discount to plan it with.
type TestCase struct {
	Name           string  `yaml:"name"`
	Gamma          float64 `yaml:"gamma"`
	driving.Config `yaml:",inline"`
}

// LoadTestCases decodes the embedded sample roads.
func LoadTestCases() ([]TestCase, error) {
	return decodeTestCases(testCasesYAML)
}

func decodeTestCases(bs []byte) ([]TestCase, error) {
	cases := make([]TestCase, 0)
	if err := yaml.Unmarshal(bs, &cases); err != nil {
		return nil, fmt.Errorf("decoding test cases: %w", err)
	}
	for i, tc := range cases {
		if err := tc.Validate(); err != nil {
			return nil, fmt.Errorf("test case %d (%s): %w", i, tc.Name, err)
		}
	}
	return cases, nil
}

// LoadTestCase returns sample road n, counting from 0.
func LoadTestCase(n int) (TestCase, error) {
	cases, err := LoadTestCases()
	if err != nil {
		return TestCase{}, err
	}
	if n < 0 || n >= len(cases) {
		return TestCase{}, fmt.Errorf("no test case %d, pick one in [0, %d)", n, len(cases))
	}
	return cases[n], nil
}

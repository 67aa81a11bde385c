package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tom3k5/soulsync-audio/internal/text"
)

// preprocessorTestCase defines a standard test case for the preprocessor.
type preprocessorTestCase struct {
	name     string
	input    string
	expected string
}

func runPreprocessorTests(t *testing.T, tests []preprocessorTestCase) {
	t.Helper()

	preprocessor := text.NewPreprocessor()

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, preprocessor.PrepareNarration(testCase.input))
		})
	}
}

func TestPreprocessor_EmptyInput(t *testing.T) {
	t.Parallel()

	preprocessor := text.NewPreprocessor()
	assert.Empty(t, preprocessor.PrepareNarration(""))
	assert.Empty(t, preprocessor.PrepareNarration(" \n\t\n "))
}

func TestPreprocessor_Ellipses(t *testing.T) {
	t.Parallel()

	runPreprocessorTests(t, []preprocessorTestCase{
		{
			name:     "mid-sentence ellipsis",
			input:    "Close your eyes gently... and take a deep breath",
			expected: "Close your eyes gently. and take a deep breath.",
		},
		{
			name:     "countdown",
			input:    "10... 9... 8... Releasing...",
			expected: "10. 9. 8. Releasing.",
		},
		{
			name:     "unicode ellipsis",
			input:    "Breathe… relax…",
			expected: "Breathe. relax.",
		},
	})
}

func TestPreprocessor_Typography(t *testing.T) {
	t.Parallel()

	runPreprocessorTests(t, []preprocessorTestCase{
		{
			name:     "smart quotes",
			input:    "Your Higher Self speaks: “I am with you.”",
			expected: `Your Higher Self speaks: "I am with you."`,
		},
		{
			name:     "apostrophe",
			input:    "You don’t have to carry the world",
			expected: "You don't have to carry the world.",
		},
		{
			name:     "abbreviation",
			input:    "As Dr. Cannon taught us",
			expected: "As Doctor Cannon taught us.",
		},
		{
			name:     "trailing comma",
			input:    "Breathe in,",
			expected: "Breathe in.",
		},
	})
}

func TestPreprocessor_PreservesLines(t *testing.T) {
	t.Parallel()

	input := "Welcome, beautiful soul.\r\n\r\n\r\n   Find a   comfortable position .\nClose your eyes."
	expected := "Welcome, beautiful soul.\n\nFind a comfortable position.\nClose your eyes."

	preprocessor := text.NewPreprocessor()
	assert.Equal(t, expected, preprocessor.PrepareNarration(input))
}

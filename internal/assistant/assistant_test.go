package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConformAnswer_NumericFields(t *testing.T) {
	assert.Equal(t, "6", conformAnswer("I have 6 years of experience", "number", nil))
	assert.Equal(t, "3.5", conformAnswer("about 3.5 years", "numeric", nil))
	assert.Equal(t, "0", conformAnswer("none to speak of", "number", nil), "non-numeric answers default to 0")
	assert.Equal(t, "0", conformAnswer("", "tel", nil))
}

func TestConformAnswer_FreeText(t *testing.T) {
	assert.Equal(t, "Yes, I can start immediately", conformAnswer("  Yes, I can start immediately  ", "text", nil))
	assert.Equal(t, "", conformAnswer("   ", "text", nil))
}

func TestMatchOption_ExactMatchWinsCaseInsensitive(t *testing.T) {
	options := []string{"Yes", "No"}
	assert.Equal(t, "Yes", matchOption("yes", options))
	assert.Equal(t, "No", matchOption("NO", options))
}

func TestMatchOption_SubstringMatch(t *testing.T) {
	options := []string{"Select an option", "0-1 years", "2-4 years", "5+ years"}
	assert.Equal(t, "5+ years", matchOption("I would say 5+ years at least", options))
}

func TestMatchOption_FallsBackToFirstRealOption(t *testing.T) {
	options := []string{"Select an option", "-- choose --", "English", "Spanish"}
	assert.Equal(t, "English", matchOption("Klingon", options))
}

func TestMatchOption_AllPlaceholders(t *testing.T) {
	options := []string{"Select an option", "Choose one", "--"}
	assert.Equal(t, "", matchOption("anything", options))
}

func TestNumericAnswer(t *testing.T) {
	assert.Equal(t, "10", numericAnswer("10+ years"))
	assert.Equal(t, "2.5", numericAnswer("roughly 2.5"))
	assert.Equal(t, "0", numericAnswer("no experience"))
}

func TestIsPlaceholderOption(t *testing.T) {
	assert.True(t, isPlaceholderOption("Select an option"))
	assert.True(t, isPlaceholderOption("choose one"))
	assert.True(t, isPlaceholderOption("-- pick --"))
	assert.False(t, isPlaceholderOption("Yes"))
	assert.False(t, isPlaceholderOption("0-1 years"))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 5))
	assert.Equal(t, "abcde", clip("abcdefgh", 5))
	assert.Equal(t, "", clip("", 5))
}

func TestResume_KeySkillsPrefersLanguages(t *testing.T) {
	resume := &Resume{
		Skills: ResumeSkills{
			ProgrammingLanguages: []string{"Go", "Python", "TypeScript", "Rust"},
			Frameworks:           []string{"Echo", "React", "Django"},
		},
	}
	assert.Equal(t, "Go, Python, TypeScript, Echo, React", resume.KeySkills())
}

func TestResume_KeySkillsFallsBackToOther(t *testing.T) {
	resume := &Resume{
		Skills: ResumeSkills{Other: []string{"SQL", "Docker", "Kubernetes"}},
	}
	assert.Equal(t, "SQL, Docker, Kubernetes", resume.KeySkills())
}

func TestResume_KeyExperience(t *testing.T) {
	resume := &Resume{
		Experience: []ResumeExperience{
			{Title: "Senior Engineer", Company: "Acme", Period: "2020-Present"},
			{Title: "Engineer", Company: "StartupX"},
		},
	}
	assert.Equal(t, "Senior Engineer at Acme", resume.KeyExperience())

	fromSummary := &Resume{ExperienceSummary: "- Staff Engineer at BigCo (2019-Present): platform work\n- more lines"}
	assert.Equal(t, "Staff Engineer at BigCo (2019-Present): platform work", fromSummary.KeyExperience())
}

func TestResume_IsEmpty(t *testing.T) {
	assert.True(t, (&Resume{}).IsEmpty())
	assert.True(t, (*Resume)(nil).IsEmpty())
	assert.False(t, (&Resume{Name: "Pat"}).IsEmpty())
}

func TestResume_ContextBlock(t *testing.T) {
	resume := &Resume{
		Name:              "Pat Doe",
		CurrentTitle:      "Software Engineer",
		YearsOfExperience: "6",
		WorkAuthorization: "Authorized to work in the US",
	}
	block := resume.ContextBlock()
	assert.Contains(t, block, "Name: Pat Doe")
	assert.Contains(t, block, "Current title: Software Engineer")
	assert.Contains(t, block, "Years of experience: 6")
	assert.Contains(t, block, "Work authorization: Authorized to work in the US")

	assert.Empty(t, (&Resume{}).ContextBlock())
}

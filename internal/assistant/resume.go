package assistant

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Resume holds the candidate data the assistant answers from. The JSON shape
// matches data/resume_info.json; the env fallback covers setups that only
// carry RESUME_* variables in .env.local.
type Resume struct {
	Name              string             `json:"name,omitempty"`
	Email             string             `json:"email,omitempty"`
	Phone             string             `json:"phone,omitempty"`
	Summary           string             `json:"summary,omitempty"`
	CurrentTitle      string             `json:"current_title,omitempty"`
	YearsOfExperience string             `json:"years_of_experience,omitempty"`
	WorkAuthorization string             `json:"work_authorization,omitempty"`
	PreferredLocation string             `json:"preferred_location,omitempty"`
	Skills            ResumeSkills       `json:"skills"`
	Experience        []ResumeExperience `json:"experience,omitempty"`
	ExperienceSummary string             `json:"experience_summary,omitempty"`
	Education         []string           `json:"education,omitempty"`
}

type ResumeSkills struct {
	ProgrammingLanguages []string `json:"programming_languages,omitempty"`
	Frameworks           []string `json:"frameworks,omitempty"`
	Other                []string `json:"other,omitempty"`
}

type ResumeExperience struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Period  string `json:"period,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// LoadResume reads the resume JSON from disk
func LoadResume(path string) (*Resume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var resume Resume
	if err := json.Unmarshal(data, &resume); err != nil {
		return nil, fmt.Errorf("failed to parse resume %s: %w", path, err)
	}
	return &resume, nil
}

// ResumeFromEnv builds a resume from RESUME_* environment variables, the
// format emitted by the generate-resume command
func ResumeFromEnv() *Resume {
	resume := &Resume{
		Name:              os.Getenv("RESUME_NAME"),
		Email:             os.Getenv("RESUME_EMAIL"),
		Phone:             os.Getenv("RESUME_PHONE"),
		Summary:           os.Getenv("RESUME_SUMMARY"),
		CurrentTitle:      os.Getenv("RESUME_CURRENT_TITLE"),
		YearsOfExperience: os.Getenv("RESUME_YEARS_OF_EXPERIENCE"),
		WorkAuthorization: os.Getenv("RESUME_WORK_AUTH"),
		PreferredLocation: os.Getenv("RESUME_PREFERRED_LOCATION"),
		ExperienceSummary: os.Getenv("RESUME_EXPERIENCE"),
	}

	if skills := os.Getenv("RESUME_SKILLS"); skills != "" {
		for _, skill := range strings.Split(skills, ",") {
			if skill = strings.TrimSpace(skill); skill != "" {
				resume.Skills.Other = append(resume.Skills.Other, skill)
			}
		}
	}
	if education := os.Getenv("RESUME_EDUCATION"); education != "" {
		for _, line := range strings.Split(education, "\n") {
			if line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-")); line != "" {
				resume.Education = append(resume.Education, line)
			}
		}
	}

	return resume
}

// IsEmpty reports whether the resume carries no usable data
func (r *Resume) IsEmpty() bool {
	return r == nil || (r.Name == "" && r.Summary == "" && r.ExperienceSummary == "" &&
		len(r.Experience) == 0 && len(r.Skills.ProgrammingLanguages) == 0 &&
		len(r.Skills.Frameworks) == 0 && len(r.Skills.Other) == 0)
}

// KeySkills returns the short skill list used in fit prompts: first three
// languages plus first two frameworks
func (r *Resume) KeySkills() string {
	if r == nil {
		return ""
	}
	skills := make([]string, 0, 5)
	skills = append(skills, firstN(r.Skills.ProgrammingLanguages, 3)...)
	skills = append(skills, firstN(r.Skills.Frameworks, 2)...)
	if len(skills) == 0 {
		skills = firstN(r.Skills.Other, 5)
	}
	return strings.Join(skills, ", ")
}

// KeyExperience returns the headline position, "title at company"
func (r *Resume) KeyExperience() string {
	if r == nil {
		return ""
	}
	if len(r.Experience) > 0 {
		exp := r.Experience[0]
		if exp.Title != "" || exp.Company != "" {
			return fmt.Sprintf("%s at %s", exp.Title, exp.Company)
		}
	}
	if r.ExperienceSummary != "" {
		line := strings.TrimSpace(strings.SplitN(r.ExperienceSummary, "\n", 2)[0])
		return strings.TrimPrefix(line, "- ")
	}
	return ""
}

// ContextBlock renders the resume as compact lines for the system prompt
func (r *Resume) ContextBlock() string {
	if r.IsEmpty() {
		return ""
	}

	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	add("Name", r.Name)
	add("Current title", r.CurrentTitle)
	add("Years of experience", r.YearsOfExperience)
	add("Experience", r.KeyExperience())
	add("Skills", r.KeySkills())
	if len(r.Education) > 0 {
		add("Education", strings.Join(firstN(r.Education, 2), "; "))
	}
	add("Work authorization", r.WorkAuthorization)
	add("Preferred location", r.PreferredLocation)
	add("Summary", r.Summary)

	return strings.Join(lines, "\n")
}

func firstN(values []string, n int) []string {
	if len(values) < n {
		n = len(values)
	}
	return values[:n]
}

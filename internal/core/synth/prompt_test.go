package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/analysis"
	"github.com/jinford/dev-onboard/internal/core/roadmap"
)

const schemaShapedReply = `{
  "repository_name": "acme/web",
  "total_tasks": 1,
  "estimated_completion_time": "3h",
  "sections": [
    {
      "id": "environment-setup",
      "title": "Environment setup",
      "description": "Get the project running",
      "tasks": [
        {
          "id": "install-dependencies",
          "title": "Install dependencies",
          "description": {"summary": "Install deps", "why_needed": "Needed to build", "learning_goal": "Know the toolchain"},
          "steps": [{"action": "Install Node", "detail": "Use the LTS release", "os_instructions": {"mac": "brew install node", "linux": "apt install nodejs"}}],
          "commands": [{"command": "npm install", "description": "Install packages", "expected_output": "added 120 packages", "os": "all"}],
          "code_blocks": [{"language": "bash", "code": "npm ci", "description": "Clean install"}],
          "references": [{"title": "npm docs", "url": "https://docs.npmjs.com"}],
          "tips": [{"text": "Use **npm ci** in CI", "type": "pro_tip"}],
          "warnings": [{"text": "Windows needs ` + "`" + `git bash` + "`" + `", "severity": "important", "os_specific": true}],
          "verification": {"how_to_verify": "run npm test", "expected_result": "all green", "troubleshooting": [{"issue": "EACCES", "solution": "fix npm prefix"}]},
          "difficulty": "intermediate",
          "estimated_time": "20 minutes",
          "depends_on": ["clone-repository"]
        }
      ]
    }
  ]
}`

func TestGenerateRoadmapKeepsEveryField(t *testing.T) {
	client := &stubClient{responses: []string{schemaShapedReply}}

	raw, err := newTestService(client).GenerateRoadmap(context.Background(), analysis.Bundle{})
	require.NoError(t, err)

	want := roadmap.Roadmap{
		RepositoryName:          "acme/web",
		TotalTasks:              1,
		EstimatedCompletionTime: "3h",
		Sections: []roadmap.Section{{
			ID:          "environment-setup",
			Title:       "Environment setup",
			Description: "Get the project running",
			Tasks: []roadmap.Task{{
				ID:    "install-dependencies",
				Title: "Install dependencies",
				Description: roadmap.Description{
					Summary:      "Install deps",
					WhyNeeded:    "Needed to build",
					LearningGoal: "Know the toolchain",
				},
				Steps: []roadmap.Step{{
					Action:         "Install Node",
					Detail:         "Use the LTS release",
					OSInstructions: map[string]string{"mac": "brew install node", "linux": "apt install nodejs"},
				}},
				Commands: []roadmap.Command{{
					Command:        "npm install",
					Description:    "Install packages",
					ExpectedOutput: "added 120 packages",
					OS:             roadmap.OSAll,
				}},
				CodeBlocks: []roadmap.CodeBlock{{Language: "bash", Code: "npm ci", Description: "Clean install"}},
				References: []roadmap.Reference{{Title: "npm docs", URL: "https://docs.npmjs.com"}},
				Tips:       []roadmap.Tip{{Text: "Use **npm ci** in CI", Type: "pro_tip", Emphasis: []string{"npm ci"}}},
				Warnings: []roadmap.Warning{{
					Text:       "Windows needs `git bash`",
					Severity:   "important",
					OSSpecific: true,
					Emphasis:   []string{"git bash"},
				}},
				Verification: roadmap.Verification{
					HowToVerify:     "run npm test",
					ExpectedResult:  "all green",
					Troubleshooting: []roadmap.Troubleshooting{{Issue: "EACCES", Solution: "fix npm prefix"}},
				},
				Difficulty:    roadmap.DifficultyIntermediate,
				EstimatedTime: "20 minutes",
				DependsOn:     []string{"clone-repository"},
			}},
		}},
	}
	assert.Equal(t, want, roadmap.Transform(raw))
}

// プロンプトで示すスキーマの全フィールドが変換後も残ることを確認します
func TestRoadmapSchemaMatchesTransform(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(roadmapSchema), &schema))

	raw, err := roadmap.ParseRaw([]byte(roadmapSchema))
	require.NoError(t, err)

	data, err := json.Marshal(roadmap.Transform(raw))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assertSubset(t, "$", schema, got)
}

func assertSubset(t *testing.T, path string, want, got any) {
	t.Helper()
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !assert.Truef(t, ok, "%s: expected object, got %T", path, got) {
			return
		}
		for k, v := range w {
			gv, ok := g[k]
			if !assert.Truef(t, ok, "%s.%s is dropped by Transform", path, k) {
				continue
			}
			assertSubset(t, path+"."+k, v, gv)
		}
	case []any:
		g, ok := got.([]any)
		if !assert.Truef(t, ok, "%s: expected array, got %T", path, got) {
			return
		}
		if !assert.Lenf(t, g, len(w), "%s", path) {
			return
		}
		for i := range w {
			assertSubset(t, fmt.Sprintf("%s[%d]", path, i), w[i], g[i])
		}
	default:
		assert.Equalf(t, want, got, "%s", path)
	}
}

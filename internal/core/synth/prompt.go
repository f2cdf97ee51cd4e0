package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinford/dev-onboard/internal/core/analysis"
)

const (
	// PurposeTemperature は目的抽出の温度設定
	PurposeTemperature = 0.2

	// PurposeMaxTokens は目的抽出で生成する最大トークン数
	PurposeMaxTokens = 800

	// RoadmapTemperature はロードマップ生成の温度設定
	RoadmapTemperature = 0.4

	// RoadmapMaxTokens はロードマップ生成で生成する最大トークン数
	RoadmapMaxTokens = 8000

	// DefaultPromptTokenBudget はプロンプトに含めるREADMEのトークン上限
	DefaultPromptTokenBudget = 6000
)

const purposeSystemPrompt = `You are a senior engineer helping new contributors understand a software repository.

Your task is to read the README and package metadata and describe what the project is for.

Guidelines:
- Be concise and factual - avoid speculation
- "features" lists the main capabilities, most important first (at most 8)
- "target_users" names who uses the project
- "project_type" is one of: web_application, library, cli, mobile_app, api, other
- Return a valid JSON response`

const roadmapSystemPrompt = `You are a senior engineer writing an onboarding roadmap for a developer joining a project.

Your task is to turn the repository analysis into an ordered list of sections with concrete tasks.

Guidelines:
- Start with environment setup, then running the project, then understanding the codebase
- Every task has a short title, a description and an estimated time such as "15 minutes" or "1h 30m"
- Section and task ids are short kebab-case strings; depends_on lists ids of earlier tasks
- total_tasks is the number of tasks and estimated_completion_time is the sum of estimated_time
- difficulty is one of: beginner, intermediate, advanced
- Commands declare the OS they apply to: all, mac, windows or linux
- Mark important words in tips and warnings with **bold** or ` + "`code`" + `
- Only mention databases and environment variables that appear in the analysis
- Return a valid JSON response`

const roadmapSchema = `{
  "repository_name": "owner/repo",
  "total_tasks": 0,
  "estimated_completion_time": "2h 30m",
  "sections": [
    {
      "id": "environment-setup",
      "title": "string",
      "description": "string",
      "tasks": [
        {
          "id": "install-dependencies",
          "title": "string",
          "description": {"summary": "string", "why_needed": "string", "learning_goal": "string"},
          "steps": [{"action": "string", "detail": "string", "os_instructions": {"mac": "string", "windows": "string", "linux": "string"}}],
          "commands": [{"command": "string", "description": "string", "expected_output": "string", "os": "all"}],
          "code_blocks": [{"language": "string", "code": "string", "description": "string"}],
          "references": [{"title": "string", "url": "string"}],
          "tips": [{"text": "string", "type": "pro_tip"}],
          "warnings": [{"text": "string", "severity": "important", "os_specific": false}],
          "verification": {"how_to_verify": "string", "expected_result": "string", "troubleshooting": [{"issue": "string", "solution": "string"}]},
          "difficulty": "beginner",
          "estimated_time": "15 minutes",
          "depends_on": ["task id"]
        }
      ]
    }
  ]
}`

// buildPurposePrompt は目的抽出プロンプトを構築します
func buildPurposePrompt(readme string, in analysis.PurposeInput) string {
	var sb strings.Builder
	sb.WriteString(purposeSystemPrompt)
	sb.WriteString("\n\n")
	if in.RepoDescription != "" {
		fmt.Fprintf(&sb, "Repository description: %s\n", in.RepoDescription)
	}
	if in.PackageDescription != "" {
		fmt.Fprintf(&sb, "Package description: %s\n", in.PackageDescription)
	}
	fmt.Fprintf(&sb, "\nREADME:\n%s\n\n", readme)
	sb.WriteString(`Return a JSON response with the following structure:
{
  "purpose": "one or two sentences",
  "features": ["feature1", "feature2"],
  "target_users": "string",
  "project_type": "string"
}`)
	return sb.String()
}

// buildRoadmapPrompt はロードマップ生成プロンプトを構築します
func buildRoadmapPrompt(bundle analysis.Bundle) (string, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis bundle: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(roadmapSystemPrompt)
	sb.WriteString("\n\nRepository analysis:\n")
	sb.Write(data)
	sb.WriteString("\n\nReturn a JSON response with the following structure:\n")
	sb.WriteString(roadmapSchema)
	return sb.String(), nil
}

package roadmap

import (
	"fmt"
	"strings"
)

// Transform は未検証のロードマップを全項目が埋まったRoadmapに正規化します
// 正規化済みの出力を再度変換しても結果は変わりません
func Transform(raw RawRoadmap) Roadmap {
	data := raw.data
	if data == nil {
		data = map[string]any{}
	}

	r := Roadmap{
		RepositoryName: stringField(data, "repository_name", "repositoryName"),
		Sections:       []Section{},
	}

	for i, item := range asList(data["sections"]) {
		obj, ok := asObject(item)
		if !ok {
			continue
		}
		r.Sections = append(r.Sections, transformSection(obj, i+1))
	}

	if n, ok := asInt(field(data, "total_tasks", "totalTasks")); ok {
		r.TotalTasks = n
	} else {
		r.TotalTasks = r.CountTasks()
	}

	r.EstimatedCompletionTime = strings.TrimSpace(stringField(data, "estimated_completion_time", "estimatedCompletionTime"))
	if r.EstimatedCompletionTime == "" {
		r.EstimatedCompletionTime = FormatMinutes(totalMinutes(r))
	}

	return r
}

func totalMinutes(r Roadmap) int {
	total := 0
	for _, s := range r.Sections {
		for _, t := range s.Tasks {
			total += ParseMinutes(t.EstimatedTime)
		}
	}
	return total
}

func transformSection(obj map[string]any, index int) Section {
	s := Section{
		ID:          stringField(obj, "id"),
		Title:       stringField(obj, "title"),
		Description: stringField(obj, "description"),
		Tasks:       []Task{},
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("section-%d", index)
	}

	n := 0
	for _, item := range asList(obj["tasks"]) {
		taskObj, ok := asObject(item)
		if !ok {
			continue
		}
		n++
		s.Tasks = append(s.Tasks, transformTask(taskObj, s.ID, n))
	}
	return s
}

func transformTask(obj map[string]any, sectionID string, index int) Task {
	t := Task{
		ID:           stringField(obj, "id"),
		Title:        stringField(obj, "title"),
		Description:  transformDescription(obj["description"]),
		Steps:        transformSteps(obj["steps"]),
		Commands:     transformCommands(obj["commands"]),
		CodeBlocks:   transformCodeBlocks(field(obj, "code_blocks", "codeBlocks")),
		References:   transformReferences(obj["references"]),
		Tips:         transformTips(obj["tips"]),
		Warnings:     transformWarnings(obj["warnings"]),
		Verification: transformVerification(obj["verification"]),
		Difficulty:   NormalizeDifficulty(stringField(obj, "difficulty")),
		DependsOn:    asStringList(field(obj, "depends_on", "dependsOn")),
	}
	if t.ID == "" {
		t.ID = fmt.Sprintf("%s-task-%d", sectionID, index)
	}
	if t.Title == "" {
		t.Title = fmt.Sprintf("Task %d", index)
	}

	t.EstimatedTime = strings.TrimSpace(stringField(obj, "estimated_time", "estimatedTime"))
	if t.EstimatedTime == "" {
		t.EstimatedTime = EstimateFromSteps(len(t.Steps))
	}
	return t
}

// NormalizeDifficulty は intermediate と advanced 以外をすべて beginner にします
func NormalizeDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyIntermediate:
		return DifficultyIntermediate
	case DifficultyAdvanced:
		return DifficultyAdvanced
	default:
		return DifficultyBeginner
	}
}

// NormalizeOS は未知のOS指定を all にします
func NormalizeOS(s string) OS {
	switch OS(strings.ToLower(strings.TrimSpace(s))) {
	case OSMac, "macos", "darwin", "osx":
		return OSMac
	case OSWindows, "win":
		return OSWindows
	case OSLinux:
		return OSLinux
	default:
		return OSAll
	}
}

func transformDescription(v any) Description {
	switch x := v.(type) {
	case string:
		return Description{Summary: x}
	case map[string]any:
		return Description{
			Summary:      stringField(x, "summary"),
			WhyNeeded:    stringField(x, "why_needed", "whyNeeded"),
			LearningGoal: stringField(x, "learning_goal", "learningGoal"),
		}
	default:
		return Description{}
	}
}

func transformSteps(v any) []Step {
	steps := []Step{}
	for _, item := range asList(v) {
		switch x := item.(type) {
		case nil:
			continue
		case map[string]any:
			step := Step{
				Action: stringField(x, "action", "title"),
				Detail: stringField(x, "detail", "description"),
			}
			if osObj, ok := asObject(field(x, "os_instructions", "osInstructions")); ok {
				for k, val := range osObj {
					if s := asString(val); s != "" {
						if step.OSInstructions == nil {
							step.OSInstructions = map[string]string{}
						}
						step.OSInstructions[k] = s
					}
				}
			}
			steps = append(steps, step)
		default:
			steps = append(steps, Step{Action: asString(x)})
		}
	}
	return steps
}

func transformCommands(v any) []Command {
	commands := []Command{}
	for _, item := range asList(v) {
		switch x := item.(type) {
		case nil:
			continue
		case map[string]any:
			commands = append(commands, Command{
				Command:        stringField(x, "command"),
				Description:    stringField(x, "description"),
				ExpectedOutput: stringField(x, "expected_output", "expectedOutput"),
				OS:             NormalizeOS(stringField(x, "os")),
			})
		default:
			commands = append(commands, Command{Command: asString(x), OS: OSAll})
		}
	}
	return commands
}

func transformCodeBlocks(v any) []CodeBlock {
	blocks := []CodeBlock{}
	for _, item := range asList(v) {
		switch x := item.(type) {
		case nil:
			continue
		case map[string]any:
			blocks = append(blocks, CodeBlock{
				Language:    stringField(x, "language"),
				Code:        stringField(x, "code"),
				Description: stringField(x, "description"),
			})
		default:
			blocks = append(blocks, CodeBlock{Code: asString(x)})
		}
	}
	return blocks
}

func transformReferences(v any) []Reference {
	refs := []Reference{}
	for _, item := range asList(v) {
		switch x := item.(type) {
		case nil:
			continue
		case map[string]any:
			refs = append(refs, Reference{
				Title: stringField(x, "title"),
				URL:   stringField(x, "url"),
			})
		default:
			s := asString(x)
			ref := Reference{Title: s}
			if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
				ref.URL = s
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

// emphasisOf は指定済みの強調リストを使い、なければ本文から抽出します
func emphasisOf(obj map[string]any, text string) []string {
	if v, ok := obj["emphasis"]; ok && v != nil {
		out := []string{}
		for _, item := range asList(v) {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return ExtractEmphasis(text)
}

func transformTips(v any) []Tip {
	tips := []Tip{}
	for _, item := range asList(v) {
		switch x := item.(type) {
		case nil:
			continue
		case map[string]any:
			text := stringField(x, "text")
			tipType := stringField(x, "type")
			if tipType == "" {
				tipType = DefaultTipType
			}
			tips = append(tips, Tip{Text: text, Type: tipType, Emphasis: emphasisOf(x, text)})
		default:
			text := asString(x)
			tips = append(tips, Tip{Text: text, Type: DefaultTipType, Emphasis: ExtractEmphasis(text)})
		}
	}
	return tips
}

func transformWarnings(v any) []Warning {
	warnings := []Warning{}
	for _, item := range asList(v) {
		switch x := item.(type) {
		case nil:
			continue
		case map[string]any:
			text := stringField(x, "text")
			severity := stringField(x, "severity")
			if severity == "" {
				severity = DefaultWarningSeverity
			}
			warnings = append(warnings, Warning{
				Text:       text,
				Severity:   severity,
				OSSpecific: asBool(field(x, "os_specific", "osSpecific")),
				Emphasis:   emphasisOf(x, text),
			})
		default:
			text := asString(x)
			warnings = append(warnings, Warning{Text: text, Severity: DefaultWarningSeverity, Emphasis: ExtractEmphasis(text)})
		}
	}
	return warnings
}

func transformVerification(v any) Verification {
	ver := Verification{Troubleshooting: []Troubleshooting{}}
	obj, ok := asObject(v)
	if !ok {
		return ver
	}

	ver.HowToVerify = stringField(obj, "how_to_verify", "howToVerify")
	ver.ExpectedResult = stringField(obj, "expected_result", "expectedResult")
	for _, item := range asList(obj["troubleshooting"]) {
		switch x := item.(type) {
		case nil:
			continue
		case map[string]any:
			ver.Troubleshooting = append(ver.Troubleshooting, Troubleshooting{
				Issue:    stringField(x, "issue", "problem"),
				Solution: stringField(x, "solution"),
			})
		default:
			ver.Troubleshooting = append(ver.Troubleshooting, Troubleshooting{Issue: asString(x)})
		}
	}
	return ver
}

// Package roadmap はオンボーディングロードマップのモデルと正規化処理を提供します
package roadmap

// Difficulty はタスクの難易度です
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// OS はコマンドの対象OSです
type OS string

const (
	OSAll     OS = "all"
	OSMac     OS = "mac"
	OSWindows OS = "windows"
	OSLinux   OS = "linux"
)

const (
	// DefaultTipType は種別未指定のヒントの種別です
	DefaultTipType = "pro_tip"
	// DefaultWarningSeverity は重大度未指定の警告の重大度です
	DefaultWarningSeverity = "important"
)

// Description はタスクの説明です
type Description struct {
	Summary      string `json:"summary"`
	WhyNeeded    string `json:"why_needed"`
	LearningGoal string `json:"learning_goal"`
}

// Step はタスクの手順です
type Step struct {
	Action         string            `json:"action"`
	Detail         string            `json:"detail"`
	OSInstructions map[string]string `json:"os_instructions,omitempty"`
}

// Command は実行するコマンドです
type Command struct {
	Command        string `json:"command"`
	Description    string `json:"description"`
	ExpectedOutput string `json:"expected_output"`
	OS             OS     `json:"os"`
}

// CodeBlock はタスク内のコード例です
type CodeBlock struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Reference は参考リンクです
type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Tip はヒントです
type Tip struct {
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Emphasis []string `json:"emphasis"`
}

// Warning は注意事項です
type Warning struct {
	Text       string   `json:"text"`
	Severity   string   `json:"severity"`
	OSSpecific bool     `json:"os_specific"`
	Emphasis   []string `json:"emphasis"`
}

// Troubleshooting はよくある問題と解決策です
type Troubleshooting struct {
	Issue    string `json:"issue"`
	Solution string `json:"solution"`
}

// Verification はタスク完了の確認方法です
type Verification struct {
	HowToVerify     string            `json:"how_to_verify"`
	ExpectedResult  string            `json:"expected_result"`
	Troubleshooting []Troubleshooting `json:"troubleshooting"`
}

// Task はロードマップの1タスクです
type Task struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   Description  `json:"description"`
	Steps         []Step       `json:"steps"`
	Commands      []Command    `json:"commands"`
	CodeBlocks    []CodeBlock  `json:"code_blocks"`
	References    []Reference  `json:"references"`
	Tips          []Tip        `json:"tips"`
	Warnings      []Warning    `json:"warnings"`
	Verification  Verification `json:"verification"`
	Difficulty    Difficulty   `json:"difficulty"`
	EstimatedTime string       `json:"estimated_time"`
	DependsOn     []string     `json:"depends_on"`
}

// Section はタスクのまとまりです
type Section struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tasks       []Task `json:"tasks"`
}

// Roadmap は正規化済みのオンボーディングロードマップです
type Roadmap struct {
	RepositoryName          string    `json:"repository_name"`
	TotalTasks              int       `json:"total_tasks"`
	EstimatedCompletionTime string    `json:"estimated_completion_time"`
	Sections                []Section `json:"sections"`
}

// TaskIDs はロードマップ内の全タスクIDを出現順で返します
func (r Roadmap) TaskIDs() []string {
	ids := []string{}
	for _, s := range r.Sections {
		for _, t := range s.Tasks {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// HasTask はタスクIDが存在するかどうかを返します
func (r Roadmap) HasTask(id string) bool {
	for _, s := range r.Sections {
		for _, t := range s.Tasks {
			if t.ID == id {
				return true
			}
		}
	}
	return false
}

// CountTasks は全セクションのタスク数の合計を返します
func (r Roadmap) CountTasks() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Tasks)
	}
	return n
}

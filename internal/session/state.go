package session

import (
	"github.com/c001-ZHSH/star-plan-analysis/internal/preview"
)

type Phase int

const (
	// PhaseIdle means no catalog has been loaded yet.
	PhaseIdle Phase = iota
	PhaseCatalogLoaded
	PhaseRunning
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCatalogLoaded:
		return "catalog-loaded"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Labels and user facing messages.
const (
	LabelFetch         = "1. 取得學校列表"
	LabelFetching      = "取得列表中..."
	LabelFetched       = "1. 取得學校列表 (已完成)"
	LabelStart         = "2. 開始分析選定學校"
	LabelStarting      = "分析中..."
	LabelRestart       = "開始分析"
	StatusTextStarting = "正在啟動爬蟲..."

	MsgEmptyURL       = "請輸入網址"
	MsgEmptySelection = "請至少選擇一間學校"
	msgFetchFailed    = "無法取得學校列表"
	msgStartFailed    = "啟動失敗"
	prefixFetchError  = "錯誤: "
	prefixStartError  = "發生錯誤: "
)

type Button struct {
	Enabled bool
	Label   string
}

type TargetRow struct {
	Name     string
	Selected bool
}

// State is a snapshot of everything the presentation layer shows.
type State struct {
	Phase Phase
	URL   string

	FetchButton Button
	StartButton Button

	CatalogVisible bool
	Targets        []TargetRow
	SelectedLabel  string

	StatusVisible bool
	// Progress is the width of the progress bar in percent.
	Progress   int
	StatusText string

	ResultVisible  bool
	JobID          string
	DownloadURL    string
	PreviewVisible bool
	Preview        []preview.Line
}

func initialState() State {
	return State{
		Phase:         PhaseIdle,
		FetchButton:   Button{Enabled: true, Label: LabelFetch},
		StartButton:   Button{Enabled: false, Label: LabelStart},
		SelectedLabel: "已選: 0",
	}
}

func (s State) clone() State {
	out := s
	out.Targets = append([]TargetRow(nil), s.Targets...)
	out.Preview = append([]preview.Line(nil), s.Preview...)
	return out
}

// View renders coordinator state. Calls are serialized by the coordinator;
// implementations must not call back into it.
type View interface {
	Render(State)
	Alert(message string)
}

package chat

import "strings"

// Canned assistant copy. The wording is part of the product surface, so
// tests compare against these constants rather than re-typing them.
const (
	// Sent when a report is requested before any document or answer
	// exists.
	msgReportGuidance = "まずはPDFのアップロードと、いくつかの質問への回答をお願いします。"

	// Sent when the start signal arrives without a readable document.
	msgUploadFirst = "まだPDFが読み込まれていないようです。先に研修ドキュメント（PDF）をアップしてください。"

	// Sent when no questions could be derived from the document.
	msgNoQuestions = "資料から問いを作れませんでした。まずは**感想を気軽に書いてください😉**"

	// Sent once when the planned questions run out.
	msgWalkExhausted = "ありがとう！予定していた問いは以上です。必要なら「できた」と送るとドラフトを作成します。"

	walkIntro      = "じゃあ今回の研修を振り返っていきましょう！\n"
	questionSuffix = "\n\n自由に書いてください。"
)

const freeFormSystemPrompt = "あなたは『研修レポート作成を支援する専門家』です。" +
	"丁寧で論理的に、文脈に沿って分かりやすく説明してください。"

// doneSynonyms trigger report drafting. They are checked before the
// start synonyms, so the entries the two sets share ("done", "完了")
// always mean "draft the report".
var doneSynonyms = map[string]bool{
	"できた":  true,
	"done": true,
	"完了":   true,
	"完成":   true,
	"終わった": true,
}

// startSynonyms acknowledge the upload and start (or continue) the
// question walk.
var startSynonyms = map[string]bool{
	"ok":     true,
	"ｏｋ":     true,
	"おk":     true,
	"了解":     true,
	"upした":   true,
	"アップした":  true,
	"done":   true,
	"完了":     true,
}

// event classifies one normalized user input.
type event int

const (
	eventMessage event = iota
	eventStart
	eventDone
)

func classify(input string) event {
	normalized := strings.ToLower(strings.TrimSpace(input))
	switch {
	case doneSynonyms[normalized]:
		return eventDone
	case startSynonyms[normalized]:
		return eventStart
	default:
		return eventMessage
	}
}

// internal/speech/recognition.go
package speech

import "strings"

// 语音识别错误码
const (
	RecognitionNoSpeech   = "no-speech"
	RecognitionAborted    = "aborted"
	RecognitionNotAllowed = "not-allowed"
)

const (
	MicAccessDenied  = "Mic access denied."
	MicCouldNotStart = "Mic could not start."
	NotSupported     = "Speech recognition is not supported in this browser."
)

// ClassifyRecognitionError 返回需要展示的消息；no-speech 和 aborted 不展示
func ClassifyRecognitionError(code string) (string, bool) {
	switch code {
	case RecognitionNoSpeech, RecognitionAborted:
		return "", false
	case RecognitionNotAllowed:
		return MicAccessDenied, true
	}
	return "Speech error: " + code, true
}

// ClassifyStartError 启动识别失败时的消息
func ClassifyStartError(name string) string {
	if name == RecognitionNotAllowed {
		return MicAccessDenied
	}
	return MicCouldNotStart
}

// JoinTranscript 拼接一次会话中所有识别结果
func JoinTranscript(results []string) string {
	return strings.Join(results, "")
}

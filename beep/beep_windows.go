//go:build windows

package beep

// No audio cues on Windows.

func Init()            {}
func PlayRecordStart() {}
func PlayRecordStop()  {}
func PlayReply()       {}
func PlayError()       {}

// Package constants provides constants for the application.
package constants

const (
	BootMessageInit = `✅ Discord connection established
✅ Cache initialized
✅ Chat provider initialized
✅ Gateway listening`
	BootMessageCleanup = `✅ Discord connection established
✅ Cache initialized
✅ Chat provider initialized
✅ Gateway listening
✅ Cleanup complete`
	BootMessageSessionsRestored = `✅ Discord connection established
✅ Cache initialized
✅ Chat provider initialized
✅ Gateway listening
✅ Cleanup complete
✅ Reading sessions restored`
)

package audio

// CaptureErrorKind classifies a capture failure.
type CaptureErrorKind string

const (
	KindPermissionDenied  CaptureErrorKind = "permission_denied"
	KindDeviceSetupFailed CaptureErrorKind = "device_setup_failed"
	KindRecordingFailed   CaptureErrorKind = "recording_failed"
)

// CaptureError is a terminal failure of one capture. Error returns the
// user-facing message; the underlying cause is available via Unwrap.
type CaptureError struct {
	Kind CaptureErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Microphone permission denied"
	case KindDeviceSetupFailed:
		return "Failed to setup audio session"
	default:
		return "Failed to record audio"
	}
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// PermissionDenied reports a refused microphone permission.
func PermissionDenied() error {
	return &CaptureError{Kind: KindPermissionDenied}
}

// DeviceSetupFailed wraps a failure to activate the input device.
func DeviceSetupFailed(err error) error {
	return &CaptureError{Kind: KindDeviceSetupFailed, Err: err}
}

func recordingFailed(err error) error {
	return &CaptureError{Kind: KindRecordingFailed, Err: err}
}

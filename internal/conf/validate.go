// conf/validate.go settings validation
package conf

import (
	"fmt"
	"strconv"
)

// ValidateSettings checks that loaded settings are internally consistent.
func ValidateSettings(settings *Settings) error {
	if port, err := strconv.Atoi(settings.WebServer.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a number between 1 and 65535, got %q", settings.WebServer.Port)
	}

	a := &settings.Audio
	if a.MinPlaybackRate <= 0 {
		return fmt.Errorf("audio.minplaybackrate must be positive, got %d", a.MinPlaybackRate)
	}
	if a.AliasingThreshold <= 0 {
		return fmt.Errorf("audio.aliasingthreshold must be positive, got %d", a.AliasingThreshold)
	}
	if a.MinTargetRate <= 0 || a.MaxTargetRate < a.MinTargetRate {
		return fmt.Errorf("audio target rate bounds invalid: [%d, %d]", a.MinTargetRate, a.MaxTargetRate)
	}
	if a.TargetRMS <= 0 || a.TargetRMS >= 1 {
		return fmt.Errorf("audio.targetrms must be in (0, 1), got %g", a.TargetRMS)
	}
	if a.SoftClipKnee <= 0 || a.SoftClipKnee >= 1 {
		return fmt.Errorf("audio.softclipknee must be in (0, 1), got %g", a.SoftClipKnee)
	}

	if settings.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session.ttlminutes must be positive, got %d", settings.Session.TTLMinutes)
	}

	if settings.ECG.DefaultSamplingRate <= 0 {
		return fmt.Errorf("ecg.defaultsamplingrate must be positive, got %d", settings.ECG.DefaultSamplingRate)
	}
	if settings.EEG.DefaultSamplingRate <= 0 {
		return fmt.Errorf("eeg.defaultsamplingrate must be positive, got %d", settings.EEG.DefaultSamplingRate)
	}

	return nil
}

// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "SigLab")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/siglab.log")

	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", "8090")
	viper.SetDefault("webserver.bodylimit", "64M")
	viper.SetDefault("webserver.log.enabled", true)
	viper.SetDefault("webserver.log.path", "logs/web.log")

	viper.SetDefault("audio.minplaybackrate", 8000)
	viper.SetDefault("audio.aliasingthreshold", 8000)
	viper.SetDefault("audio.mintargetrate", 100)
	viper.SetDefault("audio.maxtargetrate", 48000)
	viper.SetDefault("audio.targetrms", 0.3)
	viper.SetDefault("audio.softclipknee", 0.8)

	viper.SetDefault("session.ttlminutes", 30)
	viper.SetDefault("session.cleanupminutes", 10)

	viper.SetDefault("ecg.defaultsamplingrate", 360)
	viper.SetDefault("ecg.modelpath", "model/ecg_model.hdf5")
	viper.SetDefault("eeg.defaultsamplingrate", 250)
}

// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Aerolabel")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/aerolabel.log")

	viper.SetDefault("intake.imagesdir", "images/")
	viper.SetDefault("intake.labeleddir", "labeled/")
	viper.SetDefault("intake.datadir", "data/")
	viper.SetDefault("intake.extensions", []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"})

	viper.SetDefault("inference.url", "http://localhost:9400")
	viper.SetDefault("inference.timeout", 30*time.Second)

	viper.SetDefault("classifier.typeaxis", "aircraft")
	viper.SetDefault("classifier.airlineaxis", "airline")

	viper.SetDefault("ocr.enabled", true)
	viper.SetDefault("quality.enabled", true)

	viper.SetDefault("novelty.enabled", true)
	viper.SetDefault("novelty.eps", 0.05)
	viper.SetDefault("novelty.minsamples", 3)

	viper.SetDefault("thresholds.autoapprove", 0.95)

	viper.SetDefault("locks.ttl", 10*time.Minute)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "labels.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "aerolabel")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "aerolabel")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}

// Package config loads activitylens configuration from an optional YAML file and
// environment variables.
//
// # Overview
//
// The YAML file carries the structured parts (resolution maps, entity tables). Environment
// variables override the scalar settings so deployments can tune a shared file.
//
// # Configuration Structure
//
//	server:
//	  addr: ":8080"
//	database:
//	  driver: postgres            # postgres or sqlite3
//	  dsn: postgres://localhost/app?sslmode=disable
//	redis:
//	  url: redis://localhost:6379
//	  ttl: 5m
//	translations:
//	  dir: ./lang
//	  locale: en
//	  fallback_locale: en
//	  watch: true
//	resolution:
//	  resolvers:
//	    user_id: App\Models\User
//	  label_attribute:
//	    App\Models\User: name
//	  hidden_attributes: [password, remember_token]
//	  subject_aliases:
//	    App\Models\Invoice: inv
//	entities:
//	  App\Models\User:
//	    table: users
//	    key_column: id
//	    label_field: name
//
// Environment overrides:
//
//	ACTIVITYLENS_ADDR=":8080"
//	ACTIVITYLENS_DB_DRIVER="postgres"
//	ACTIVITYLENS_DB_DSN="postgres://localhost/app"
//	ACTIVITYLENS_REDIS_URL="redis://localhost:6379"
//	ACTIVITYLENS_TRANSLATIONS_DIR="./lang"
//	ACTIVITYLENS_LOCALE="en"
//	ACTIVITYLENS_LOG_LEVEL="info"
//	ACTIVITYLENS_OTEL_ENABLED="true"
//
// # Usage Example
//
//	cfg, err := config.Load("activitylens.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Resolution.IsHidden("password"))
package config

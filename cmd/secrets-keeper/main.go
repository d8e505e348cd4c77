package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mongodbstore"
	"github.com/alexedwards/scs/v2"
	"github.com/caarlos0/env/v11"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sk "github.com/Gaurangi-25/Secrets-Keeper"
	skoauth "github.com/Gaurangi-25/Secrets-Keeper/oauth2"
	"github.com/Gaurangi-25/Secrets-Keeper/stores"
)

// Config is sourced entirely from the environment
type Config struct {
	MongoURI           string `env:"MONGO_URI,required"`
	SessionSecret      string `env:"SESSION_SECRET,required"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	BaseURL            string `env:"BASE_URL" envDefault:"http://localhost:3000"`
	Port               int    `env:"PORT" envDefault:"3000"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal("error loading config: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// A database connection failure at startup is fatal
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("error connecting to database: ", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("error reaching database: ", err)
	}

	db := client.Database("secretsDB")
	store := stores.NewMongoUserStore(db.Collection("users"))
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal("error creating indexes: ", err)
	}

	// Sessions live in the same database, keyed by an opaque cookie token,
	// with a fixed 24 hour expiry from creation.
	session := scs.New()
	session.Lifetime = 24 * time.Hour
	session.Store = mongodbstore.New(db)

	app := sk.New("SecretsKeeper", session, store)
	app.JWTSecretKey = cfg.SessionSecret

	google := skoauth.NewGoogleOAuth2(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.BaseURL+"/auth/google/secret",
		app.HandleOAuthUser,
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server running on port %d", cfg.Port)
	if err := http.ListenAndServe(addr, app.Handler(google)); err != nil {
		log.Fatal(err)
	}
}

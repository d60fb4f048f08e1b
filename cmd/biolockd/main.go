// Command biolockd serves the zero-knowledge authentication protocol over
// HTTP: challenge issuance, proof verification, primary login and the
// second-factor upgrade. User and tenant records are loaded from JSON files;
// the biometric matcher is a placeholder for the external scoring
// collaborator.
package main

import (
	"bytes"
	"net/http"
	"time"

	"github.com/sauerbraten/jsonfile"
	"github.com/sirupsen/logrus"

	"github.com/biolock/zkauth"
	"github.com/biolock/zkauth/challenge"
	"github.com/biolock/zkauth/magiclink"
	"github.com/biolock/zkauth/ratelimit"
	"github.com/biolock/zkauth/secondfactor"
	"github.com/biolock/zkauth/session"
	"github.com/biolock/zkauth/zkproof"
)

// exactMatcher stands in for the external biometric scoring service: full
// score on an exact template match, zero otherwise.
type exactMatcher struct{}

func (exactMatcher) Compare(stored, presented []byte) (float64, error) {
	if bytes.Equal(stored, presented) {
		return 100, nil
	}
	return 0, nil
}

func main() {
	log := zkauth.Logger
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var conf Config
	if err := jsonfile.ParseFile("config.json", &conf); err != nil {
		log.Fatalln(err)
	}
	if err := conf.validate(); err != nil {
		log.Fatalln(err)
	}

	var users []*zkauth.User
	if err := jsonfile.ParseFile("users.json", &users); err != nil {
		log.Fatalln(err)
	}
	var companies []*zkauth.Company
	if err := jsonfile.ParseFile("companies.json", &companies); err != nil {
		log.Fatalln(err)
	}

	group := zkproof.DefaultGroup()
	if conf.Group == "demo" {
		log.Warn("using the 61-bit demo group; offers no real discrete-log hardness")
		group = zkproof.DemoGroup()
	}

	var ledgerStore challenge.Store
	if conf.ChallengeDBPath != "" {
		bs, err := challenge.OpenBoltStore(conf.ChallengeDBPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer func() { _ = bs.Close() }()
		ledgerStore = bs
	} else {
		log.Warn("using in-memory challenge store; replay protection is per-instance only")
		ledgerStore = challenge.NewMemStore()
	}
	ledger := challenge.NewLedger(ledgerStore, conf.challengeTTL())

	var linkStore magiclink.Store
	if conf.LinkDBPath != "" {
		ls, err := magiclink.OpenBoltStore(conf.LinkDBPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer func() { _ = ls.Close() }()
		linkStore = ls
	} else {
		linkStore = magiclink.NewMemStore()
	}
	links := magiclink.NewRegistry(linkStore, conf.linkTTL())

	var audit secondfactor.AuditLog
	if conf.AuditDBPath != "" {
		bl, err := secondfactor.OpenBoltAuditLog(conf.AuditDBPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer func() { _ = bl.Close() }()
		audit = bl
	} else {
		audit = secondfactor.NewMemAuditLog()
	}

	sessions, err := session.NewAuthority([]byte(conf.SigningSecret))
	if err != nil {
		log.Fatalln(err)
	}

	auth, err := zkauth.NewAuthenticator(
		group,
		ledger,
		sessions,
		zkauth.NewMemUserStore(users...),
		zkauth.NewMemCompanyStore(companies...),
		exactMatcher{},
		audit,
		ratelimit.NewLimiter(ratelimit.NewMemStore(), conf.RateLimit, conf.rateWindow()),
		links,
	)
	if err != nil {
		log.Fatalln(err)
	}

	go func() {
		ticker := time.NewTicker(conf.purgeInterval())
		defer ticker.Stop()
		for range ticker.C {
			n, err := auth.PurgeExpired()
			if err != nil {
				log.WithError(err).Error("challenge purge failed")
				continue
			}
			if n > 0 {
				log.WithField("purged", n).Debug("swept stale challenges")
			}
		}
	}()

	srv := &server{auth: auth, secure: conf.SecureCookies, linkDomain: conf.PublicDomain}
	log.WithField("addr", conf.ListenAddress).Info("biolockd listening")
	if err := http.ListenAndServe(conf.ListenAddress, srv.routes()); err != nil {
		log.Fatalln(err)
	}
}

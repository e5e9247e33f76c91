// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/repmine/repmine/eligibility"
	"github.com/repmine/repmine/mining"
	"github.com/repmine/repmine/oracle"
	"github.com/repmine/repmine/rep"
)

const (
	configFileName = "config.yaml"
	judgeFileName  = "verdicts.yaml"
)

// config is the network definition stored in the data dir at init. Amounts are base units, or whole
// tokens with a "t" suffix.
type config struct {
	MinStake               string `yaml:"minStake"`
	StakePerEntry          string `yaml:"stakePerEntry"`
	SubmissionWindow       string `yaml:"submissionWindow"`
	EligibilityRamp        string `yaml:"eligibilityRamp"`
	Eligibility            string `yaml:"eligibility"`
	MaxEntriesPerPrincipal uint64 `yaml:"maxEntriesPerPrincipal"`
	MaxDisputeDuration     string `yaml:"maxDisputeDuration"`
	ReputationPerEntry     string `yaml:"reputationPerEntry"`
	UpdatesPerEntry        uint64 `yaml:"updatesPerEntry"`
	MiningSkillID          uint64 `yaml:"miningSkillID"`
	Origin                 string `yaml:"origin"`
	Custody                string `yaml:"custody"`
}

var defaultCustody = rep.BytesToAddress([]byte("stake-custody"))

func defaultConfig() *config {
	p := mining.DefaultParams()
	return &config{
		MinStake:               p.MinStake.String(),
		StakePerEntry:          p.StakePerEntry.String(),
		SubmissionWindow:       p.SubmissionWindow.String(),
		EligibilityRamp:        p.EligibilityRamp.String(),
		Eligibility:            "delay",
		MaxEntriesPerPrincipal: p.MaxEntriesPerPrincipal,
		MaxDisputeDuration:     p.MaxDisputeDuration.String(),
		ReputationPerEntry:     p.ReputationPerEntry.String(),
		UpdatesPerEntry:        p.UpdatesPerEntry,
		MiningSkillID:          p.MiningSkillID,
		Origin:                 p.OriginID.String(),
		Custody:                defaultCustody.String(),
	}
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %v", path)
	}
	return cfg, nil
}

func saveConfig(path string, cfg *config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrap(err, name)
	}
	return d, nil
}

func parseAmountField(name, s string) (*big.Int, error) {
	v, err := rep.ParseAmount(s)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return v, nil
}

// params converts the config into network parameters.
func (c *config) params() (p mining.Params, err error) {
	if p.MinStake, err = parseAmountField("minStake", c.MinStake); err != nil {
		return
	}
	if p.StakePerEntry, err = parseAmountField("stakePerEntry", c.StakePerEntry); err != nil {
		return
	}
	if p.ReputationPerEntry, err = parseAmountField("reputationPerEntry", c.ReputationPerEntry); err != nil {
		return
	}
	if p.SubmissionWindow, err = parseDuration("submissionWindow", c.SubmissionWindow); err != nil {
		return
	}
	if p.EligibilityRamp, err = parseDuration("eligibilityRamp", c.EligibilityRamp); err != nil {
		return
	}
	if p.MaxDisputeDuration, err = parseDuration("maxDisputeDuration", c.MaxDisputeDuration); err != nil {
		return
	}
	origin, err := rep.ParseAddress(c.Origin)
	if err != nil {
		return p, errors.Wrap(err, "origin")
	}
	p.OriginID = *origin
	p.MaxEntriesPerPrincipal = c.MaxEntriesPerPrincipal
	p.UpdatesPerEntry = c.UpdatesPerEntry
	p.MiningSkillID = c.MiningSkillID
	return p, p.Validate()
}

func (c *config) custody() (rep.Address, error) {
	addr, err := rep.ParseAddress(c.Custody)
	if err != nil {
		return rep.Address{}, errors.Wrap(err, "custody")
	}
	return *addr, nil
}

func (c *config) policy() (eligibility.Policy, error) {
	ramp, err := parseDuration("eligibilityRamp", c.EligibilityRamp)
	if err != nil {
		return nil, err
	}
	return eligibility.ByName(c.Eligibility, ramp)
}

// loadEnv loads .env files from the working directory and the data dir, the first one winning.
// Variables already set in the environment are never overridden.
func loadEnv(dataDir string) error {
	for _, path := range []string{".env", filepath.Join(dataDir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "load %v", path)
		}
	}
	return nil
}

type verdictRecord struct {
	Hash      rep.Bytes32 `yaml:"hash"`
	NodeCount uint64      `yaml:"nodes"`
	Verdict   string      `yaml:"verdict"`
}

// loadVerdicts reads the verdict table kept for the static oracle. A missing file is an empty table.
func loadVerdicts(path string) ([]verdictRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []verdictRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "parse verdicts %v", path)
	}
	return records, nil
}

// setVerdict records v for the claim, replacing any earlier verdict.
func setVerdict(path string, claim oracle.Claim, v oracle.Verdict) error {
	records, err := loadVerdicts(path)
	if err != nil {
		return err
	}
	rec := verdictRecord{Hash: claim.Hash, NodeCount: claim.NodeCount, Verdict: v.String()}
	replaced := false
	for i := range records {
		if records[i].Hash == claim.Hash && records[i].NodeCount == claim.NodeCount {
			records[i] = rec
			replaced = true
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func newStaticJudge(path string) (*oracle.Static, error) {
	records, err := loadVerdicts(path)
	if err != nil {
		return nil, err
	}
	judge := oracle.NewStatic()
	for _, rec := range records {
		v, err := oracle.ParseVerdict(rec.Verdict)
		if err != nil {
			return nil, err
		}
		judge.Set(oracle.Claim{Hash: rec.Hash, NodeCount: rec.NodeCount}, v)
	}
	return judge, nil
}

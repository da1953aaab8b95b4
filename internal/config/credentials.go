package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mt5copier/tradecopier/pkg/types"
)

// Credentials holds both account credential sets loaded from the
// Title,Value tabular file.
type Credentials struct {
	Master types.CredentialSet
	Slave  types.CredentialSet
}

// LoadCredentials parses the two-column Title,Value credentials file.
// Recognised titles are master_login, master_password, master_server,
// slave_login, slave_password, slave_server; any missing title is a
// fatal config error.
func LoadCredentials(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("credentials file is empty")
	}

	header := records[0]
	titleCol, valueCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Title":
			titleCol = i
		case "Value":
			valueCol = i
		}
	}
	if titleCol == -1 || valueCol == -1 {
		return nil, fmt.Errorf("credentials file must have Title and Value columns")
	}

	values := make(map[string]string, len(records)-1)
	for _, row := range records[1:] {
		if len(row) <= titleCol || len(row) <= valueCol {
			continue
		}
		values[strings.TrimSpace(row[titleCol])] = strings.TrimSpace(row[valueCol])
	}

	required := []string{"master_login", "master_password", "master_server", "slave_login", "slave_password", "slave_server"}
	for _, key := range required {
		if _, ok := values[key]; !ok {
			return nil, fmt.Errorf("credentials file missing required title %q", key)
		}
	}

	masterLogin, err := strconv.ParseUint(values["master_login"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse master_login: %w", err)
	}
	slaveLogin, err := strconv.ParseUint(values["slave_login"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse slave_login: %w", err)
	}

	return &Credentials{
		Master: types.CredentialSet{
			Login:    masterLogin,
			Password: values["master_password"],
			Server:   values["master_server"],
		},
		Slave: types.CredentialSet{
			Login:    slaveLogin,
			Password: values["slave_password"],
			Server:   values["slave_server"],
		},
	}, nil
}

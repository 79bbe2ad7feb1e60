// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024-2025 Aaron LI
//
// Configuration management.
//

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"captiveportal/log"
)

const (
	configFilename = "config.json"
)

// DNS policies
const (
	// Answer every A query with the AP address, except the excluded names.
	PolicyWildcard = "wildcard"
	// Answer only the listed names; everything else is non-existent.
	PolicyHostnames = "hostnames"
)

type Config struct {
	// Embed the config file content for later save.
	ConfigFile

	// Parsed from AP.Address.
	ApAddress netip.Addr
}

type ConfigFile struct {
	// The access point brought up when no station connection works.
	AP *APConfig `json:"ap"`
	// The captive DNS service.
	DNS *DNSConfig `json:"dns"`
	// The configuration web page.
	HTTP *HTTPConfig `json:"http"`

	// File holding the stored credentials, relative to the config dir.
	StorageFile path `json:"storage_file"`
	// Seconds to wait for a station connection before falling back.
	ConnectTimeout int `json:"connect_timeout"`
	// Seconds to keep the scanned network list.
	ScanCacheTTL int `json:"scan_cache_ttl"`

	// The simulated radio.
	Sim *SimConfig `json:"sim"`
}

type APConfig struct {
	// Empty to derive it from the interface MAC address.
	SSID string `json:"ssid"`
	// Empty for an open network.
	Password      string `json:"password"`
	Channel       uint8  `json:"channel"`
	MaxConnection uint8  `json:"max_connection"`
	Hidden        bool   `json:"hidden"`
	// The AP interface address handed out in DNS answers.
	Address string `json:"address"`
}

type DNSConfig struct {
	ListenAddr string `json:"listen_addr"`
	ListenPort uint16 `json:"listen_port"`
	// Bind the socket to this network interface (Linux only).
	Interface string `json:"interface"`
	// Policy: wildcard, hostnames
	Policy string `json:"policy"`
	// Names answered under the "hostnames" policy.
	// A leading "*." makes it a zone.
	Hostnames []string `json:"hostnames"`
	// Names that are non-existent under the "wildcard" policy.
	Exclude []string `json:"exclude"`
	TTL     uint32   `json:"ttl"`
}

type HTTPConfig struct {
	ListenAddr string `json:"listen_addr"`
	ListenPort uint16 `json:"listen_port"`
}

type SimConfig struct {
	// MAC address of the simulated interfaces.
	MAC string `json:"mac"`
	// Networks visible to the simulated radio.
	Networks []SimNetwork `json:"networks"`
}

type SimNetwork struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	BSSID    string `json:"bssid"`
	Channel  uint8  `json:"channel"`
	RSSI     int8   `json:"rssi"`
	// Auth mode: open, wep, wpa-psk, wpa2-psk, wpa-wpa2-psk, wpa3-psk
	Auth string `json:"auth"`
	// Address assigned by the simulated DHCP.
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
	Netmask string `json:"netmask"`
}

func (cf *ConfigFile) setDefaults() {
	if cf.AP == nil {
		cf.AP = &APConfig{}
	}
	if cf.AP.Channel == 0 {
		cf.AP.Channel = 1
	}
	if cf.AP.MaxConnection == 0 {
		cf.AP.MaxConnection = 4
	}
	if cf.AP.Address == "" {
		cf.AP.Address = "192.168.4.1"
	}

	if cf.DNS == nil {
		cf.DNS = &DNSConfig{}
	}
	if cf.DNS.ListenAddr == "" {
		cf.DNS.ListenAddr = "0.0.0.0"
	}
	if cf.DNS.ListenPort == 0 {
		cf.DNS.ListenPort = uint16(53)
	}
	if cf.DNS.Policy == "" {
		cf.DNS.Policy = PolicyWildcard
	}
	if cf.DNS.Policy == PolicyHostnames && len(cf.DNS.Hostnames) == 0 {
		cf.DNS.Hostnames = []string{"captive.apple.com"}
	}
	if cf.DNS.TTL == 0 {
		cf.DNS.TTL = 60
	}

	if cf.HTTP == nil {
		cf.HTTP = &HTTPConfig{}
	}
	if cf.HTTP.ListenAddr == "" {
		cf.HTTP.ListenAddr = "0.0.0.0"
	}
	if cf.HTTP.ListenPort == 0 {
		cf.HTTP.ListenPort = uint16(80)
	}

	if cf.StorageFile == "" {
		cf.StorageFile = "storage.yaml"
	}
	if cf.ConnectTimeout <= 0 {
		cf.ConnectTimeout = 15
	}
	if cf.ScanCacheTTL <= 0 {
		cf.ScanCacheTTL = 30
	}

	if cf.Sim == nil {
		cf.Sim = &SimConfig{}
	}
	if cf.Sim.MAC == "" {
		cf.Sim.MAC = "24:0a:c4:00:00:01"
	}
}

func (cf *ConfigFile) validate() error {
	switch cf.DNS.Policy {
	case PolicyWildcard, PolicyHostnames:
	default:
		return fmt.Errorf("invalid dns policy [%s]", cf.DNS.Policy)
	}
	if cf.AP.Channel > 14 {
		return fmt.Errorf("invalid ap channel [%d]", cf.AP.Channel)
	}
	if n := len(cf.AP.Password); n > 0 && (n < 8 || n > 64) {
		return fmt.Errorf("invalid ap password length [%d]", n)
	}
	return nil
}

func (cf *ConfigFile) GetConnectTimeout() time.Duration {
	return time.Duration(cf.ConnectTimeout) * time.Second
}

func (cf *ConfigFile) GetScanCacheTTL() time.Duration {
	return time.Duration(cf.ScanCacheTTL) * time.Second
}

type path string

func (p path) Path() string {
	return getPath(string(p), configDir)
}

func getPath(path string, dir string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return path
}

var (
	config    *Config
	configDir string
)

func Initialize(dir string) error {
	fp := filepath.Join(dir, configFilename)
	if _, err := os.Stat(fp); err == nil {
		log.Errorf("config file [%s] already exists", fp)
		return errors.New("file already exists")
	}

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			log.Errorf("failed to create config dir [%s]: %v", dir, err)
			return err
		}
		log.Infof("created config dir: %s", dir)
	} else if err != nil {
		log.Errorf("cannot stat config dir [%s]: %v", dir, err)
		return err
	}

	cf := ConfigFile{}
	cf.setDefaults()
	data, err := json.MarshalIndent(&cf, "", "    ")
	if err != nil {
		panic(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(fp, data, 0644); err != nil {
		log.Errorf("failed to write config file [%s]: %v", fp, err)
		return err
	}
	log.Infof("created config file: %s", fp)

	return nil
}

// New builds a config from the file content, filling in the defaults.
func New(cf ConfigFile) (*Config, error) {
	conf := Config{ConfigFile: cf}
	conf.ConfigFile.setDefaults()
	if err := conf.ConfigFile.validate(); err != nil {
		return nil, err
	}

	addr, err := netip.ParseAddr(conf.AP.Address)
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("invalid ap address [%s]", conf.AP.Address)
	}
	conf.ApAddress = addr

	return &conf, nil
}

func Load(dir string) error {
	cf := ConfigFile{}

	fp := filepath.Join(dir, configFilename)
	if data, err := os.ReadFile(fp); err == nil {
		if err := json.Unmarshal(data, &cf); err != nil {
			log.Errorf("failed to load config from file [%s]: %v", fp, err)
			return err
		}
		log.Infof("read config from file: %s", fp)
	} else if errors.Is(err, os.ErrNotExist) {
		log.Infof("config file [%s] doesn't exist; use the defaults", fp)
	} else {
		log.Errorf("failed to read config file [%s]: %v", fp, err)
		return err
	}

	conf, err := New(cf)
	if err != nil {
		log.Errorf("invalid config file [%s]: %v", fp, err)
		return err
	}
	log.Debugf("config file content: %+v", conf.ConfigFile)

	config = conf
	configDir = dir
	log.Infof("loaded config from directory: %s", dir)

	return nil
}

func Get() *Config {
	if config == nil {
		panic("config is nil; Load() was not called or failed?")
	}
	return config
}

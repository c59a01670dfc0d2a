/*
 * Copyright 2025 quarrydb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quarrydb/quarry/utils"
)

// Config declares the full adapter topology of an application: any number
// of named SQL, document, and key-value backends, plus optional explicit
// defaults per kind.
type Config struct {
	SQL      map[string]*SQLConfig   `json:"sql" yaml:"sql"`
	Document map[string]*MongoConfig `json:"document" yaml:"document"`
	KeyValue map[string]*RedisConfig `json:"kv" yaml:"kv"`

	Defaults struct {
		SQL      string `json:"sql" yaml:"sql"`
		Document string `json:"document" yaml:"document"`
		KeyValue string `json:"kv" yaml:"kv"`
	} `json:"defaults" yaml:"defaults"`
}

// LoadConfig reads a YAML topology file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// overrideFromEnv applies environment overrides to a SQL config. Only the
// adapter named DefaultAdapterName picks these up so multi-backend
// topologies stay deterministic.
func overrideFromEnv(cfg *SQLConfig) {
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)
	cfg.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.ConnMaxLifetime = time.Duration(utils.EnvDefaultInt("DB_CONN_MAX_LIFETIME",
		int(cfg.ConnMaxLifetime/time.Second))) * time.Second
	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
}

// BuildRegistry constructs adapters for every declared backend and
// registers them. Nothing is connected; call Registry.ConnectAll when the
// application starts.
func (c *Config) BuildRegistry() (*Registry, error) {
	registry := NewRegistry()

	for _, name := range sortedKeys(c.SQL) {
		sqlCfg := c.SQL[name]
		if sqlCfg == nil {
			sqlCfg = DefaultSQLConfig()
		}
		if name == DefaultAdapterName {
			overrideFromEnv(sqlCfg)
		}
		opts := []RegisterOption{}
		if name == c.Defaults.SQL {
			opts = append(opts, AsDefault())
		}
		if err := registry.Register(name, NewSQLAdapter(sqlCfg), opts...); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(c.Document) {
		mongoCfg := c.Document[name]
		if mongoCfg == nil {
			mongoCfg = DefaultMongoConfig()
		}
		opts := []RegisterOption{}
		if name == c.Defaults.Document {
			opts = append(opts, AsDefault())
		}
		if err := registry.Register(name, NewMongoAdapter(mongoCfg), opts...); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(c.KeyValue) {
		redisCfg := c.KeyValue[name]
		if redisCfg == nil {
			redisCfg = DefaultRedisConfig()
		}
		opts := []RegisterOption{}
		if name == c.Defaults.KeyValue {
			opts = append(opts, AsDefault())
		}
		if err := registry.Register(name, NewRedisAdapter(redisCfg), opts...); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

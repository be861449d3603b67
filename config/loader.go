/*
   Velociraptor - Dig Deeper
   Copyright (C) 2019-2025 Rapid7 Inc.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package config

import (
	"fmt"
	"os"

	errors "github.com/go-errors/errors"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/logging"
)

// A hard error causes the loader to stop immediately.
type HardError struct {
	Err error
}

func (self HardError) Error() string {
	return self.Err.Error()
}

func (self HardError) Unwrap() error {
	return self.Err
}

type loaderFunction struct {
	name        string
	loader_func func(self *Loader) (*config_types.Config, error)
}

type configMutator struct {
	name                string
	config_mutator_func func(self *config_types.Config) error
}

// Builds a config by trying each loader in turn. The first loader to
// succeed wins, then mutators and validation are applied.
type Loader struct {
	verbose bool

	loaders         []loaderFunction
	config_mutators []configMutator

	logger *logging.LogContext
}

func (self *Loader) WithVerbose(verbose bool) *Loader {
	self = self.Copy()
	self.verbose = verbose
	return self
}

func (self *Loader) WithConfigMutator(
	name string,
	mutator func(self *config_types.Config) error) *Loader {
	self = self.Copy()
	self.config_mutators = append(self.config_mutators, configMutator{
		name:                name,
		config_mutator_func: mutator,
	})
	return self
}

func (self *Loader) WithFileLoader(filename string) *Loader {
	if filename != "" {
		self = self.Copy()
		self.loaders = append(self.loaders, loaderFunction{
			name: "WithFileLoader",
			loader_func: func(self *Loader) (*config_types.Config, error) {
				self.Log("Loading config from file %v", filename)
				result, err := LoadConfig(filename)
				if err != nil {
					// If a filename is specified but it
					// does not exist or invalid stop
					// searching immediately.
					return nil, HardError{err}
				}
				return result, nil
			}})
	}

	return self
}

func (self *Loader) WithEnvLoader(env_var string) *Loader {
	self = self.Copy()
	self.loaders = append(self.loaders, loaderFunction{
		name: "WithEnvLoader",
		loader_func: func(self *Loader) (*config_types.Config, error) {
			env_config := os.Getenv(env_var)
			if env_config != "" {
				self.Log("Loading config from env %v (%v)", env_var, env_config)
				result, err := LoadConfig(env_config)
				if err != nil {
					return nil, HardError{err}
				}
				return result, nil
			}
			return nil, fmt.Errorf("Env var %v is not set", env_var)
		}})

	return self
}

// Falls back to the built in defaults. Should be the last loader.
func (self *Loader) WithDefaultLoader() *Loader {
	self = self.Copy()
	self.loaders = append(self.loaders, loaderFunction{
		name: "WithDefaultLoader",
		loader_func: func(self *Loader) (*config_types.Config, error) {
			self.Log("Using default config")
			return GetDefaultConfig(), nil
		}})
	return self
}

func (self *Loader) Copy() *Loader {
	return &Loader{
		verbose:         self.verbose,
		logger:          self.logger,
		loaders:         append([]loaderFunction{}, self.loaders...),
		config_mutators: append([]configMutator{}, self.config_mutators...),
	}
}

func (self *Loader) Log(format string, v ...interface{}) {
	if self.logger == nil {
		logging.Prelog(format, v...)
	} else {
		self.logger.Info(format, v...)
	}
}

func (self *Loader) Validate(config_obj *config_types.Config) error {
	config_obj.Verbose = self.verbose

	for _, mutator := range self.config_mutators {
		err := mutator.config_mutator_func(config_obj)
		if err != nil {
			return fmt.Errorf("%v: %w", mutator.name, err)
		}
	}

	err := ValidateConfig(config_obj)
	if err != nil {
		return err
	}

	err = logging.InitLogging(config_obj)
	if err != nil {
		return err
	}

	self.logger = logging.GetLogger(config_obj, &logging.ToolComponent)
	return nil
}

func (self *Loader) LoadAndValidate() (*config_types.Config, error) {
	for _, loader := range self.loaders {
		result, err := loader.loader_func(self)
		if err == nil {
			return result, self.Validate(result)
		}

		// Stop on hard errors.
		_, ok := err.(HardError)
		if ok {
			return nil, err
		}
		self.Log("%v", err)
	}
	return nil, errors.New("Unable to load config from any source.")
}

// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/veridict-io/veridict/internal/componentmgr"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

var componentManagerFactory = componentmgr.NewComponentManager
var exitProcess = os.Exit

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <config.yaml>\n", os.Args[0])
		exitProcess(int(RC_FAIL))
		return
	}
	exitProcess(int(newInstance(os.Args[1]).run()))
}

type RC int

const (
	RC_OK   RC = 0
	RC_FAIL RC = 1
)

type instance struct {
	configFile string

	ctx       context.Context
	cancelCtx context.CancelFunc
	signals   chan os.Signal
	stopped   atomic.Bool
	done      chan struct{}
}

func newInstance(configFile string) *instance {
	i := &instance{
		configFile: configFile,
		signals:    make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}
	i.ctx, i.cancelCtx = context.WithCancel(log.WithLogField(context.Background(), "pid", strconv.Itoa(os.Getpid())))
	return i
}

func (i *instance) signalHandler() {
	signal.Notify(i.signals, os.Interrupt, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	sig := <-i.signals
	if sig != nil {
		log.L(i.ctx).Infof("Stopping due to signal %s", sig)
		i.stop()
	}
}

func (i *instance) run() RC {
	defer close(i.done)
	go i.signalHandler()

	var conf vdconf.VeridictConfig
	if err := vdconf.ReadAndParseYAMLFile(i.ctx, i.configFile, &conf); err != nil {
		log.L(i.ctx).Error(err.Error())
		return RC_FAIL
	}

	cm := componentManagerFactory(i.ctx, &conf)
	// From this point need to ensure we stop the component manager
	defer cm.Stop()

	err := cm.Init()
	if err == nil {
		// Managers start first - so they are ready to process
		err = cm.StartManagers()
	}
	if err == nil {
		// Then the front door opens - the RPC server starts accepting calls
		err = cm.CompleteStart()
	}
	if err != nil {
		log.L(i.ctx).Error(err.Error())
		return RC_FAIL
	}

	// We're started... we just wait for the request to stop
	<-i.ctx.Done()

	return RC_OK
}

func (i *instance) stop() {
	if i.stopped.CompareAndSwap(false, true) {
		i.cancelCtx()
		close(i.signals)
		<-i.done
	}
}

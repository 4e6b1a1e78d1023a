// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// go-dtb prints and queries flattened device tree blobs.
//
//	go-dtb [-v] [-n PATH] [-p PROPERTY [-s|-x]] [-gpio] FILE
//
// With no query flags the tree under PATH (default the root) is
// printed. -p prints the named property of that node, raw by
// default, as strings with -s or hex with -x. -gpio prints the gpio
// pin map gathered from the tree's aliases and gpio controllers.
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/platinasystems/dtb"
	"github.com/platinasystems/dtb/dtbgpio"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/gpio"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"github.com/platinasystems/url"
)

const usage = "usage: go-dtb [-v] [-n PATH] [-p PROPERTY [-s|-x]] [-gpio] FILE"

func main() {
	if err := Main(os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, "go-dtb:", err)
		os.Exit(1)
	}
}

func Main(args ...string) error {
	flag, args := flags.New(args, "-v", "-gpio", "-s", "-x")
	parm, args := parms.New(args, "-n", "-p")
	if len(args) != 1 {
		return errors.New(usage)
	}

	f, err := url.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	buf, err := ioutil.ReadAll(f)
	if err != nil {
		return errors.WithMessage(err, args[0])
	}

	t, err := dtb.New(buf)
	if err != nil {
		return errors.WithMessage(err, args[0])
	}
	if flag.ByName["-v"] {
		log.Print("go-dtb: ", t.Header.String())
	}

	n := t.Root()
	if path := parm.ByName["-n"]; len(path) > 0 {
		if n, err = resolve(n, path); err != nil {
			return err
		}
	}

	switch {
	case flag.ByName["-gpio"]:
		return gpioMap(t)
	case len(parm.ByName["-p"]) > 0:
		return printProp(n, parm.ByName["-p"],
			flag.ByName["-s"], flag.ByName["-x"])
	default:
		fmt.Print(n)
	}
	return nil
}

// resolve walks a /-separated path of child names from n. A path
// element may carry a unit address, e.g. soc/uart@1.
func resolve(n dtb.Node, path string) (dtb.Node, error) {
	for _, elem := range strings.Split(path, "/") {
		if elem == "" {
			continue
		}
		var err error
		if i := strings.IndexByte(elem, '@'); i >= 0 {
			n, err = n.SubNodeAt(elem[:i], elem[i+1:])
		} else {
			n, err = n.SubNode(elem)
		}
		if err != nil {
			return dtb.Node{}, errors.WithMessage(err, elem)
		}
		if !n.IsValid() {
			return dtb.Node{}, errors.Errorf("%s: not found", elem)
		}
	}
	return n, nil
}

func printProp(n dtb.Node, name string, asStrings, asHex bool) error {
	value, found, err := n.Property(name)
	if err != nil {
		return err
	}
	if !found {
		return errors.Errorf("%s: not found", name)
	}
	switch {
	case asStrings:
		for _, s := range dtb.PropStringSlice(value) {
			if len(s) > 0 {
				fmt.Println(s)
			}
		}
	case asHex:
		fmt.Printf("% x\n", value)
	default:
		os.Stdout.Write(value)
	}
	return nil
}

func gpioMap(t *dtb.Tree) error {
	aliases, err := t.Root().SubNode("aliases")
	if err != nil {
		return err
	}
	if aliases.IsValid() {
		if err = dtbgpio.GatherAliases(aliases); err != nil {
			return err
		}
	}
	err = t.Root().EachNode(func(n dtb.Node) error {
		has, err := n.HasProperty("gpio-controller")
		if err != nil {
			return err
		}
		if has {
			return dtbgpio.GatherPins(n)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for name, pin := range gpio.Pins {
		fmt.Printf("%s: %x\n", name, pin)
	}
	return nil
}

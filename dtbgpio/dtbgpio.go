// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package dtbgpio fills the gpio package's alias and pin maps from a
// device tree blob.
package dtbgpio

import (
	"strconv"
	"strings"

	"github.com/platinasystems/dtb"
	"github.com/platinasystems/gpio"
)

// GatherAliases builds the map of gpio controller aliases from the
// tree's aliases node. Each gpio alias property holds a node path;
// the last path element names the controller.
func GatherAliases(n dtb.Node) error {
	return n.EachProperty(func(name string, value []byte) error {
		if strings.Contains(name, "gpio") {
			v := strings.Split(dtb.PropString(value), "/")
			gpio.Aliases[name] = v[len(v)-1]
		}
		return nil
	})
}

// GatherPins builds the map of gpio pins for one gpio controller
// node. Each child with a gpio-pin-desc property is named
// pin-name@index and carries its mode as an input, output-high or
// output-low property.
func GatherPins(n dtb.Node) error {
	name, err := n.Name()
	if err != nil {
		return err
	}
	for bank, alias := range gpio.Aliases {
		if alias != name {
			continue
		}
		err = n.EachChild(func(c dtb.Node) error {
			var pn []string
			var mode string
			cname, err := c.Name()
			if err != nil {
				return err
			}
			err = c.EachProperty(func(p string, _ []byte) error {
				switch p {
				case "gpio-pin-desc":
					pn = strings.Split(cname, "@")
				case "output-high", "output-low", "input":
					mode = p
				}
				return nil
			})
			if err != nil {
				return err
			}
			if mode != "" && len(pn) == 2 {
				i, _ := strconv.Atoi(pn[1])
				gpio.Pins[pn[0]] = gpio.GpioPinMode[mode] |
					gpio.GpioBankToBase[bank] |
					gpio.Pin(i)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

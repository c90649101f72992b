package catalog

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type xmlJoe struct {
	Dated    string        `xml:"dated,attr"`
	Products xmlProducts   `xml:"PRODUCTS"`
	Alerts   xmlAlerts     `xml:"ALERTS"`
	Stats    xmlStatistic  `xml:"STATISTIC"`
}

type xmlProducts struct {
	Product []xmlProduct `xml:"PRODUCT"`
}

type xmlProduct struct {
	Name            string          `xml:"Name,attr"`
	Code            string          `xml:"Code,attr"`
	CoffeeStrength  *xmlItemsOption `xml:"COFFEE_STRENGTH"`
	Temperature     *xmlItemsOption `xml:"TEMPERATURE"`
	WaterAmount     *xmlMinMaxOption `xml:"WATER_AMOUNT"`
	MilkFoamAmount  *xmlMinMaxOption `xml:"MILK_FOAM_AMOUNT"`
}

type xmlItemsOption struct {
	Argument string    `xml:"Argument,attr"`
	Default  string    `xml:"Default,attr"`
	Item     []xmlItem `xml:"ITEM"`
}

type xmlItem struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

type xmlMinMaxOption struct {
	Argument string `xml:"Argument,attr"`
	Value    string `xml:"Value,attr"`
	Min      string `xml:"Min,attr"`
	Max      string `xml:"Max,attr"`
	Step     string `xml:"Step,attr"`
}

type xmlAlerts struct {
	Alert []xmlAlert `xml:"ALERT"`
}

type xmlAlert struct {
	Bit  string `xml:"Bit,attr"`
	Name string `xml:"Name,attr"`
	Type string `xml:"Type,attr"`
}

type xmlStatistic struct {
	MaintenancePage xmlMaintenancePage `xml:"MAINTENANCEPAGE"`
}

type xmlMaintenancePage struct {
	Bank []xmlBank `xml:"BANK"`
}

type xmlBank struct {
	Name     string        `xml:"Name,attr"`
	TextItem []xmlTextItem `xml:"TEXTITEM"`
}

type xmlTextItem struct {
	Type string `xml:"Type,attr"`
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func convertItemsOption(o *xmlItemsOption) *ItemsOption {
	if o == nil {
		return nil
	}
	out := &ItemsOption{Argument: o.Argument, Default: o.Default}
	for _, it := range o.Item {
		out.Items = append(out.Items, Item{Name: it.Name, Value: it.Value})
	}
	return out
}

func convertMinMaxOption(o *xmlMinMaxOption) *MinMaxOption {
	if o == nil {
		return nil
	}
	return &MinMaxOption{
		Argument: o.Argument,
		Value:    atoiOr(o.Value, 0),
		Min:      atoiOr(o.Min, 0),
		Max:      atoiOr(o.Max, 0),
		Step:     atoiOr(o.Step, 1),
	}
}

// LoadJoe reads "<dir>/<entry.FileStem>.xml" and builds the machine
// description for entry. A missing or corrupt file is returned as an error,
// and the session fails its connection on it (§7).
func LoadJoe(entry MachineEntry, dir string) (*Joe, error) {
	path := filepath.Join(dir, entry.FileStem+".xml")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening machine description %s: %w", path, err)
	}
	defer f.Close()

	var doc xmlJoe
	if err := xml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: parsing machine description %s: %w", path, err)
	}

	joe := &Joe{
		Dated:           doc.Dated,
		Machine:         &entry,
		ProductCounters: map[string]uint32{},
	}

	for _, p := range doc.Products.Product {
		joe.Products = append(joe.Products, Product{
			Name:        p.Name,
			Code:        p.Code,
			Strength:    convertItemsOption(p.CoffeeStrength),
			Temperature: convertItemsOption(p.Temperature),
			WaterAmount: convertMinMaxOption(p.WaterAmount),
			MilkFoam:    convertMinMaxOption(p.MilkFoamAmount),
		})
	}

	for _, a := range doc.Alerts.Alert {
		joe.Alerts = append(joe.Alerts, Alert{
			Bit:  atoiOr(a.Bit, -1),
			Name: a.Name,
			Type: a.Type,
		})
	}

	for _, bank := range doc.Stats.MaintenancePage.Bank {
		var labels []string
		for _, item := range bank.TextItem {
			labels = append(labels, item.Type)
		}
		switch bank.Name {
		case "Maintenance Counter":
			joe.MaintenanceCounterLabels = labels
		case "Maintenance Percent":
			joe.MaintenancePercentLabels = labels
		}
	}

	return joe, nil
}

package report

import (
	"io"
	"text/template"
)

var markdownTemplate = template.Must(template.New("report").
	Funcs(template.FuncMap{"bytes": FormatBytes}).
	Parse(`# Kismet Log Report

Generated {{.GeneratedAt.UTC.Format "2006-01-02 15:04:05"}} UTC

## Overview

| | |
|---|---|
| Log | {{.LogPath}} |
| Size | {{bytes .LogSize}} |
| Kismet version | {{.Control.KismetVersion}} |
| Schema version | {{.Control.DBVersion}} |
| Log module | {{.Control.DBModule}} |
{{- with .Server}}
| Server | {{.Name}} |
| Server UUID | {{.UUID}} |
| Location | {{.Location}} |
| Description | {{.Description}} |
| User | {{.User}} |
{{- end}}

## Tables

| Table | Rows | First | Last |
|---|---:|---|---|
{{- range .Tables}}
| {{.Name}} | {{.Rows}} | {{.First}} | {{.Last}} |
{{- end}}
{{if .Datasources}}
## Datasources

| UUID | Name | Interface | Type |
|---|---|---|---|
{{- range .Datasources}}
| {{.UUID}} | {{.Name}} | {{.Interface}} | {{.Type}} |
{{- end}}
{{end}}
{{- if .Phys}}
## Devices by PHY

| PHY | Devices |
|---|---:|
{{- range .Phys}}
| {{.Name}} | {{.Count}} |
{{- end}}

## Devices by type

| Type | Devices |
|---|---:|
{{- range .DeviceTypes}}
| {{.Name}} | {{.Count}} |
{{- end}}

## Top devices by data

| MAC | PHY | Type | Signal | Data | First seen | Last seen |
|---|---|---|---:|---:|---|---|
{{- range .TopDevices}}
| {{.MAC}} | {{.Phy}} | {{.Type}} | {{.Signal}} | {{.BytesStr}} | {{.FirstSeen}} | {{.LastSeen}} |
{{- end}}
{{end}}
{{- if .AlertHeaders}}
## Alerts

| Alert | Count |
|---|---:|
{{- range .AlertHeaders}}
| {{.Name}} | {{.Count}} |
{{- end}}
{{end -}}
`))

// WriteMarkdown renders the report as Markdown.
func WriteMarkdown(w io.Writer, data *Data) error {
	return markdownTemplate.Execute(w, data)
}

package parse

import "regexp"

// patternEntry pairs an extraction expression with the timezone its
// agency stamps times in and, when the feed never names one, the
// country to geocode bare area names against.
type patternEntry struct {
	re      *regexp.Regexp
	zone    string
	country string
}

func entry(expr, zone, country string) patternEntry {
	return patternEntry{re: regexp.MustCompile("(?is)" + expr), zone: zone, country: country}
}

// denylist drops texts that match an earthquake pattern by accident:
// weather bulletins, tsunami follow-ups and repeated warning updates.
var denylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Alert for HighWaves`),
	regexp.MustCompile(`(?i)Tsunami Information Statement`),
	regexp.MustCompile(`(?i)Final Tsunami Threat`),
	regexp.MustCompile(`(?i)Tropical Depression`),
	regexp.MustCompile(`(?i)Tropical Cyclone`),
	regexp.MustCompile(`(?i)Cyclones Tropicaux`),
	regexp.MustCompile(`(?i)Storm Warning`),
	regexp.MustCompile(`(?i)KT WINDS`),
	regexp.MustCompile(`降灰予報`),
	regexp.MustCompile(`第\d報`),
}

// patterns is the agency catalog, tried in order. Expressions use named
// groups; see applyEntry for the group vocabulary.
var patterns = []patternEntry{
	entry(`(SWIFT|Swift) ID:\d+, (?P<status>.+), Date: ?(?P<time>\d.+), Lat: ?(?P<lat>.+), Lon: ?(?P<lon>.+), Depth: ?(?P<depth>[\d.]+) km, (?P<magtype>M\w*): (?P<mag>[\d.]+)`, "UTC", ""),
	entry(`\[(?P<time>[\d:]+) UTC\] +earthquake detected at .+ from (?P<area>.+)\. Download .+ (?P<link>http\S+)`, "UTC", ""),
	entry(`\[(?P<time>[\d:]+) UTC\] +sismo detectado a .+ de (?P<area>.+)\. Descarga .+ (?P<link>http\S+)`, "UTC", ""),
	entry(`\[(?P<time>[\d:]+) UTC\] +terremoto rilevato a .+ da (?P<area>.+)\. Scarica .+ (?P<link>http\S+)`, "UTC", ""),
	entry(`: (?P<time>\S+ \S+) (?P<mag>[\d.]+) .(?P<magtype>M\w*). (?P<coords>\S+ \S+) (?P<depth>[\d.]+)`, "Asia/Istanbul", ""),
	entry(`Yer: (?P<area>.+) / Tarih: (?P<date>.+) / Saat: (?P<time>.+) / Büyüklük: (?P<mag>[\d.]+) / Derinlik: (?P<depth>.+) Km`, "Asia/Istanbul", "Turkey"),
	entry(`Büyüklük : (?P<mag>[\d.]+) \((?P<magtype>\w+)\) Yer : (?P<area>.+) Tarih-Saat : (?P<date>.+), (?P<time>.+) TSİ Enlem : (?P<lat>.+) Boylam : (?P<lon>.+) Derinlik : (?P<depth>.+) km Detay : (?P<link>http\S+)`, "Asia/Istanbul", "Turkey"),
	entry(`(?P<area>.+) Büyüklük: (?P<mag>[\d.]+) Tarih: (?P<date>.+) Saat: (?P<time>.+) Derinlik:  ?(?P<depth>\d+) km`, "Asia/Istanbul", "Turkey"),
	entry(`Time: (?P<time>.+) Latitude: (?P<lat>.+) Longitude: (?P<lon>.+) Depth: (?P<depth>[\d.]+)km (?P<magtype>M\w*) (?P<mag>[\d.]+)`, "UTC", ""),
	entry(`Mag:(?P<mag>[\d.]+) \S+ km \S+ +from (?P<area>.+) Depth: ?(?P<depth>[\d.]+)km (?P<time>.+):UTC .* (?P<link>http\S+)`, "UTC", "US"),
	entry(`EQ M(?P<mag>[\d.]+) \[(?P<status>.+)\].*Hora Chilena. (?P<time>\d.+) .UTC..*\((?P<coords>.+,.+)\)`, "UTC", ""),
	entry(`(?P<status>Auto)EQ (?P<magtype>\w+)(?P<mag>[\d.]+) (?P<time>.+ UTC) \[.* P[SD]T\] .+ mi .+ of (?P<area>.+) depth (?P<depth>\S+) km`, "UTC", ""),
	entry(`TenemosSismo (?P<source>\S+) (?P<time>\d.+) sensor cercano.*\d+ km al .+ de (?P<area>.+), más información en (?P<link>http\S+)`, "America/Mexico_City", "Mexico"),
	entry(`SASMEX:Sismo del (?P<time>.+): Primera.* Lat:(?P<lat>.+) Long:(?P<lon>.+)`, "America/Mexico_City", ""),
	entry(`SISMO Magnitud (?P<mag>[\d.]+) Loc. * \S+ km al \S+ de (?P<area>\D+) (?P<time>\d.+) Lat (?P<lat>\S+) Lon (?P<lon>\S+) (Prof|Pf) (?P<depth>\d+)`, "America/Mexico_City", ""),
	entry(`(?P<status>\S+): SISMO Magnitud (?P<mag>[\d.]+) Loc. .* km al \S+ de (?P<area>\D+) (?P<time>\d.+) Lat (?P<lat>.+) Lon (?P<lon>.+) (Prof|Pf) (?P<depth>\d+)`, "America/Mexico_City", "Mexico"),
	entry(`SismoDetectado. Posible epicentro en: (?P<area>.+)\. (?P<time>.+) +Más información en SASSLA app.`, "America/Mexico_City", "Mexico"),
	entry(`Sismo en proceso en la Region de (?P<area>.+) - (?P<time>.+)CL`, "America/Santiago", "Chile"),
	entry(`Sismo \| Hora Local: (?P<time>.+) \| Lat: (?P<lat>.+) \| Long: (?P<lon>.+) \| Prof .Km.: (?P<depth>.+) \| Mag: (?P<mag>[\d.]+) (?P<magtype>\w+) \| Loc:.+(?P<link>http\S+)`, "America/Santiago", ""),
	entry(`TEMBLOR de (?P<mag>[\d.]+), hoy (?P<time>.+), Epicentro: .+ km .+ de (?P<area>.+), Profundidad (?P<depth>.+) km`, "America/Santiago", "Chile"),
	entry(`(?P<status>PRELIMINAR|REVISADO) .*\| Sismo de magnitud (?P<mag>[\d.]+) Richter se produjo a las (?P<time>.+) horas .* a \S+ km al \S+ de (?P<area>.+), región .*, con una profundidad de (?P<depth>[\d.]+) kilómetros`, "America/Santiago", "Chile"),
	entry(`(?P<time>.+[\d]) [A-Z|].*, a [\d.]+km .*, prof: (?P<depth>.*)km (?P<source>[^ ]*): .*M(?P<mag>[\d.]+) .(?P<status>Preliminar|Revisión)`, "America/Santiago", "Chile"),
	entry(`Hora Local: (?P<time>.+) mag: (?P<mag>[\d.]+), Lat: (?P<lat>.+), Lon: (?P<lon>.+), Prof: (?P<depth>.+), Loc: .+ km .+ de (?P<area>.+)`, "America/Santiago", ""),
	entry(`Fecha y Hora Local: (?P<time>.+) Magnitud: (?P<mag>[\d.]+) Profundidad: (?P<depth>.+)km Latitud: (?P<lat>\S+) Longitud: (?P<lon>\S+)`, "America/Lima", ""),
	entry(`ÚltimoSismo (?P<time>.+) Magnitud: (?P<mag>[\d.]+) (?P<magtype>\w+); Profundidad: (?P<depth>\d+) km Referencia: \S+ km al \S+ de (?P<area>.+) NO GENERA`, "America/Lima", "Peru"),
	entry(`Reportamos Evento Sísmico - Boletín Actualizado ., (?P<time>.+) hora local. Magnitud (?P<mag>[\d.]+), profundidad (?P<depth>[\d.]+) km, (?P<area>.+) Noticia`, "America/Bogota", "Colombia"),
	entry(`(?P<time>\d.+). Sismo de (?P<mag>[\d.]+) (?P<magtype>M\w*) a (?P<depth>\S+) km de profundidad en (?P<area>.+)`, "America/Bogota", ""),
	entry(`Sismo:(?P<time>.+) .HLV., Mag. (?P<mag>[\d.]+) (?P<magtype>[Mm]\S+), a .* Km al \S+ de (?P<area>.+) (?P<coords>.+), prof. (?P<depth>[\d,.]+) km`, "America/Caracas", "Venezuela"),
	entry(`Sismo. - +Mag (?P<mag>[\d.]+) - (?P<area>[^-]+) - (?P<time>.+) hs:`, "America/Buenos_Aires", "Argentina"),
	entry(`[Ss]ismocr (?P<status>\S+), (?P<time>.+), Mag: (?P<mag>[\d,.]+), Prof: (?P<depth>[\d]+) km, .* km al \S+ de (?P<area>.+)`, "America/Costa_Rica", "Costa Rica"),
	entry(`[Ss]ismocr (?P<status>\S+), (?P<time>.+), Mag: (?P<mag>[\d,.]+), .* km al \S+ de (?P<area>.+)`, "America/Costa_Rica", "Costa Rica"),
	entry(`Fecha: (?P<date>.+). Hora Local: (?P<time>.+). Localización: .* km al \S+ de (?P<area>.+). Coordenadas: (?P<lat>.+) y (?P<lon>.+). Profundidad: (?P<depth>.+) km. Magnitud: (?P<mag>[\d,.]+) (?P<magtype>M\w*)`, "America/Costa_Rica", "Costa Rica"),
	entry(`SISMO ID: \S+ (?P<status>\S+) (?P<time>\d.+) TL Magnitud: ?(?P<mag>[\d.]+) Profundidad: ?(?P<depth>[\d.]+) km, a .*Latitud: ?(?P<lat>.+) Longitud: ?(?P<lon>.+) Sintió este sismo`, "America/Guayaquil", ""),
	entry(`Sismo de magnitud (?P<mag>[\d.]+) en .*\. A \S+ km al \S+ de (?P<area>.+) +\[\S+ \d+, \d+ (?P<time>\d.+)\]`, "America/El_Salvador", "El Salvador"),
	entry(`Se ha producido un terremoto de magnitud (?P<mag>[\d.]+) en (?P<area>.+) en la fecha (?P<time>.+) en la siguiente localización: (?P<coords>\S+)`, "UTC", ""),
	entry(`terremoto (?P<time>.+UTC) (?P<area>.+) mag=(?P<mag>[\d.]+) prof=(?P<depth>.+)km cálculo (?P<status>\S+) (?P<link>http\S+)`, "UTC", "Spain"),
	entry(`(?P<status>Prelim) M(?P<mag>[\d.]+) earthquake (?P<area>.+) ...-\d+ (?P<time>\d\d:\d\d UTC)`, "UTC", ""),
	entry(`earthquake M(?P<mag>[\d.]+) strikes (?P<area>.+) (?P<time>\d.+ ago)\.`, "UTC", ""),
	entry(`M(?P<mag>[\d.]+) earthquake .* strikes \S+ km \S+ of (?P<area>\D+) (?P<time>\d.+ ago)\.`, "UTC", ""),
	entry(`(?P<mag>[\d.]+) earthquake, (?P<area>.+)\. (?P<time>.+) at epicenter \(.*, depth (?P<depth>.+)km`, "UTC", ""),
	entry(`\[Hi-net\] 発生時刻：(?P<time>.+) 震源地：(?P<area>.+) 緯度：(?P<lat>.+) 経度：(?P<lon>.+) 深さ：(?P<depth>.+)km マグニチュード：(?P<mag>[\d.]+)`, "Asia/Tokyo", ""),
	entry(`【地震情報】 .+ (?P<time>\d+時\d+分)  (?P<area>.+) でM(?P<mag>[\d.]+)の地震。  震源 (?P<coords>.+)  深さ (?P<depth>\S+)km`, "Asia/Tokyo", ""),
	entry(`【地震情報】(?P<time>.+)頃、(?P<area>.+) 深さ約(?P<depth>.+)kmでM(?P<mag>[\d.]+).最大(?P<intensity>震度.)の地震がありました`, "Asia/Tokyo", "Japan"),
	entry(`地震発生時刻: (?P<time>.+) 震央:(?P<area>.+)\(北緯(?P<lat>.+) 東経(?P<lon>.+)\) マグニチュード: (?P<mag>[\d.]+) 震源の深さ: (?P<depth>[\d.]+)km`, "Asia/Tokyo", "Japan"),
	entry(`【M(?P<mag>[\d.]+)】(?P<area>.+) (?P<depth>[\d.]+)km (?P<time>.+ JST)`, "Asia/Tokyo", ""),
	entry(`EEW\S+ .*(?P<area>.+)で地震　最大震度 (?P<intensity>.+).推定. .詳細. (?P<time>.+)発生　M(?P<mag>[\d.]+) 深さ(?P<depth>.+)km`, "Asia/Tokyo", "Japan"),
	entry(`Earthquake (?P<status>.+) Report.*At around (?P<time>.+), an earthquake with a magnitude of (?P<mag>[\d.]+) occurred (in|near|offshore) (?P<area>.+) at a depth of (?P<depth>\d+)km. The maximum intensity was (?P<intensity>[0-9+])\.`, "Asia/Tokyo", "Japan"),
	entry(`Earthquake (?P<status>.+) Report.*At around (?P<time>.+), an earthquake occurred (in|near|offshore) (?P<area>.+)\.`, "Asia/Tokyo", "Japan"),
	entry(`Magnitude (?P<mag>[\d.]+) Intensity (?P<intensity>.+) earthquake (?P<time>\d.+) \w\w\w-\d\d JST at (?P<area>.+) \((?P<coords>.+)\) Depth (?P<depth>[\d.]+)km +(?P<link>http\S+)`, "Asia/Tokyo", "Japan"),
	entry(`(?P<time>.+) JST .* of (?P<area>.+) Depth: (?P<depth>.+)km Mag.: (?P<mag>[\d.]+) JMA Scale:`, "Asia/Tokyo", "Japan"),
	entry(`(?P<time>\d.+)\.\d\d (?P<lat>\d.+[NS]) (?P<lon>\d.+[EW]) (?P<depth>[\d.]+)km M(?P<mag>[\d.]+)`, "Asia/Tokyo", ""),
	entry(`\[국외지진정보\] ?..-.. (?P<time>\S+) (?P<area>.+) \S+ \d+km .* 규모 ?(?P<mag>[\d.]+) (?P<link>http\S+)`, "Asia/Seoul", ""),
	entry(`\[지진정보\] ?..-.. (?P<time>\S+) (?P<area>.+) \S+ \d+km .* 규모 ?(?P<mag>[\d.]+) (?P<link>http\S+)`, "Asia/Seoul", "South Korea"),
	entry(`Earthquake: (?P<time>.+) M(?P<mag>[\d.]+) \[(?P<coords>.+)\] (?P<area>.+)`, "Asia/Hong_Kong", ""),
	entry(`Earthquake: (?P<time>\d.+)HKT M(?P<mag>[\d.]+) \[(?P<coords>.+)\]`, "Asia/Hong_Kong", ""),
	entry(`Earthquake of Magnitude: ?(?P<mag>[\d.]+), Occurred on: ?(?P<time>.+) IST, Lat: ?(?P<lat>[\d.NS ]+).*Long: ?(?P<lon>[\d.EW ]+), Depth: ?(?P<depth>.+) Km,`, "Asia/Kolkata", ""),
	entry(`Magnitudo: (?P<mag>[\d.]+) SR,.*Waktu gempa: (?P<time>.+) WIB, Lintang: (?P<lat>.+), Bujur: (?P<lon>.+), Kedalaman: (?P<depth>.+) [Kk]m`, "Asia/Jakarta", ""),
	entry(`Gempa Mag[: ](?P<mag>[\d.]+)( SR)?, (?P<time>\d.+), Lok:(?P<lat>.+),(?P<lon>.+) \(.*, Kedlmn:(?P<depth>[\d.]+) Km`, "Asia/Jakarta", ""),
	entry(`Peringatan Dini Tsunami di (?P<water>.+), Gempa Mag:(?P<mag>[\d.]+), (?P<time>.+), Lok:(?P<lat>\S+)LS,(?P<lon>\S+)BT,Kdlmn:(?P<depth>[\d.]+)Km`, "Asia/Jakarta", ""),
	entry(`Date and Time: (?P<time>.+) Magnitude = (?P<mag>[\d.]+) Depth = (?P<depth>[\d.]+) kilometers? Location = (?P<coords>.+[EW]) -`, "Asia/Manila", ""),
	entry(`Date: (?P<date>.+) Time: (?P<time>.+) (am|pm) .Thailand. Magnitude: (?P<mag>[\d.]+) richter .*Latitude: (?P<lat>.+) Longt?itude: (?P<lon>.+) Depth: (?P<depth>.+) km`, "Asia/Bangkok", ""),
	entry(`A (?P<mag>[\d.]+)-magnitude earthquake jolted .*, at (?P<time>\d.+) .*, according to the (?P<source>.+).The epicenter, with a depth of (?P<depth>[\d.]+) km, was monitored at (?P<lat>.+) latitude and (?P<lon>.+) longitude.`, "Asia/Shanghai", ""),
	entry(`S-a detectat un nou cutremur in .* judetul (?P<area>.+), la ora (?P<time>.+), cu magnitudinea de (?P<mag>[\d.]+) pe scara Richter`, "Europe/Bucharest", "Romania"),
	entry(`Cutremur .*, judetul (?P<area>\D+) (?P<time>\d.+), mag (?P<mag>[\d.]+)`, "Europe/Bucharest", "Romania"),
	entry(`(?P<time>\S+) earthquake with a magnitude of about (?P<mag>[\d.]+) near (?P<area>.+)\. .*\. \S+ damage likely. (?P<link>http\S+)`, "Europe/Zurich", "Switzerland"),
	entry(`terremoto (?P<magtype>\w+):(?P<mag>[\d.]+) (?P<time>.+) Lat=(?P<lat>.+) Lon=(?P<lon>.+) Prof=(?P<depth>\d+)Km Zona=(?P<area>[^.]+)\.`, "UTC", ""),
	entry(`terremoto (?P<magtype>\w+) (?P<mag>[\d.]+) ore (?P<time>.+) IT del (?P<date>.+) a .* km \S+ (?P<area>.+) Prof=(?P<depth>\d+)Km`, "Europe/Rome", "Italy"),
	entry(`Terremoto (?P<magtype>\w+) (?P<mag>[\d.]+) epicentro .+ km .+ (?P<area>.+) alle .+ \((?P<time>.+) UTC\)`, "UTC", "Italy"),
	entry(`\[(?P<status>STIMA PROVVISORIA)\] terremoto Mag tra (?P<mag>[\d.]+) e (?P<maxmag>[\d.]+), ore (?P<time>.+) IT del (?P<date>.+), prov/zona (?P<area>.+),`, "Europe/Rome", "Italy"),
	entry(`(?P<mag>[\d.]+) (?P<magtype>\w+), .* Km .* from (?P<area>.+): (?P<time>.+) (?P<status>automatic|revised)`, "UTC", "Greece"),
	entry(`(?P<mag>[\d.]+), (?P<area>.+): (?P<time>\S+ \S+) (?P<coords>\S+ \S+) (?P<depth>[\d.]+) km (?P<status>automatic|manual)`, "UTC", ""),
	entry(`M (?P<mag>[\d.]+), (?P<area>[^:]+): (?P<time>.+) +(?P<lat>\S+) +(?P<lon>\S+) +(?P<depth>\d+) km +(?P<status>A|C|M)`, "UTC", ""),
	entry(`(?P<status>\w+) detection of seismic event: magnitude (?P<mag>[\d.]+) - (?P<time>.+) - (?P<area>.+) region`, "UTC", "Canada"),
	entry(`QUAKE: Mag (?P<mag>[\d.]+), ..., (?P<time>.+), .* km \S+ of (?P<area>.+)\. Depth: (?P<depth>[\d.]+) km`, "Pacific/Auckland", "New Zealand"),
	entry(`QUAKE! Magnitude (?P<mag>[\d.]+), \S+km \w+ of (?P<area>.+) on (?P<date>.+) at (?P<time>.+) ET. (?P<link>http\S+)`, "America/New_York", ""),
	entry(`Origin date/time: (?P<time>.+) ; Location: (?P<area>.+) ; Lat/long: (?P<coords>.+) ; Depth: (?P<depth>.+) km ; Magnitude: +(?P<mag>[\d.]+)`, "Europe/London", ""),
	entry(`\* MAGNITUDE +(?P<mag>[\d.]+)\n.*\* ORIGIN TIME +(?P<time>[^\n]+)\n.*\* COORDINATES (?P<coords>.+)\n.*\* DEPTH +(?P<depth>[\d]+) KM.*\* LOCATION +(?P<area>[^\n]+)\n.*?(?P<water>(\n      \S[^\n]+)+)`, "UTC", ""),
	entry(`\* AN EARTHQUAKE WITH A PRELIMINARY MAGNITUDE OF (?P<mag>[\d.]+) OCCURRED IN (?P<area>.+) AT (?P<time>.+ UTC) ON \S+ (?P<date>[^.]+)\..+\* TSUNAMI WAVES ARE FORECAST .+ FOR THE COASTS OF (?P<water>[^*]+)\. \*`, "UTC", ""),
	entry(`HAZARDOUS TSUNAMI WAVES ARE FORECAST .* for some coasts of (?P<water>.+) after the (?P<status>\S+) M(?P<mag>[\d.]+) occurred (?P<area>.+) at (?P<time>.+ UTC) on \S+ (?P<date>.+\d)`, "UTC", ""),
	entry(`TSUNAMI WARNING 1: See (?P<link>http\S+) +for alert areas.  M(?P<mag>[\d.]+) \S+ \S+ +(?P<area>.+) (?P<time>\d\S+) (?P<date>.+):`, "UTC", ""),
	entry(`(?P<alert>\S+) earthquake alert .Magnitude (?P<mag>[\d.]+)(?P<magtype>\w+), Depth:(?P<depth>.+)km. in (?P<area>\D+) (?P<time>\d.+) UTC`, "UTC", ""),
	entry(`(?P<alert>\S+) earthquake alert .(?P<mag>[\d.]+)(?P<magtype>\w+),depth:(?P<depth>.+)km. in (?P<area>\D+) (?P<time>\d.+) UTC`, "UTC", ""),
	entry(`(?P<status>Preliminary) M(?P<mag>[\d.]+) earthquake \S+ from (?P<area>\D+) in \S+, (?P<date>.+) UTC by @?raspishake`, "UTC", ""),
	entry(`(?P<source>.+) reports a M(?P<mag>[\d.]+) earthquake .+km .+ of (?P<area>.+) on (?P<date>.+) @ (?P<time>.+) UTC (?P<link>http\S+)`, "UTC", "US"),
	entry(`Region: ?(?P<area>.+) Mag: ?(?P<mag>[\d.]+) UTC: ?(?P<time>.+) Lat: ?(?P<lat>\S+) Lon: ?(?P<lon>\S+) Dep: ?(?P<depth>[\d.]+)km (?P<link>http\S+)`, "UTC", ""),
	entry(`Earthquake +Magnitude (?P<mag>[\d.]+) reported \S+km \S+ of (?P<area>.+) at (?P<time>\d.+ UTC) (?P<link>http\S+)`, "UTC", ""),
	entry(`Earthquake: +(?P<magtype>M\w*) (?P<mag>[\d.]+) (?P<area>.+): .* Date time +(?P<time>\d.+)\.\d UTC Location +(?P<coords>.+) Depth +(?P<depth>[\d.]+) km +(?P<link>http\S+)`, "UTC", ""),
	entry(`(?P<magtype>M\w*)=(?P<mag>[\d.]+), (?P<area>.+) .Depth: (?P<depth>\S+) km., (?P<time>.+) - Full details here: (?P<link>http\S+)`, "UTC", ""),
	entry(`(?P<magtype>M\w*) (?P<mag>[\d.]+) earthquake \((?P<status>.+)\) occured at (?P<time>.+) UTC, .+km .+ of (?P<area>.+) (?P<link>http\S+)`, "UTC", ""),
	entry(`(?P<mag>[\d.]+) earthquake (close to|occurred near) (?P<area>.+) at (?P<time>.+) UTC!.*(?P<link>http\S+)`, "UTC", ""),
	entry(`\d+km \S+ of (?P<area>.+) earthquake Mag (?P<mag>[\d.]+) -.*\((?P<time>.+ GMT)\)`, "UTC", ""),
	entry(`(?P<time>.+) GMT - Shaking reported near (?P<area>.?)\. (?P<link>http\S+)`, "UTC", ""),
	entry(`(?P<time>\d\d\d\d-\d\d-\d\dT\d\d:\d\d:\d\d)Z: M(?P<mag>[\d.]+) (?P<area>[^0-9]+)`, "UTC", ""),
	entry(`(?P<time>\d.+) \(M(?P<mag>[\d.]+)\) (?P<area>.+) (?P<lat>[-+\d.]+) (?P<lon>[-+\d.]+) \(`, "UTC", ""),
}

// matchPattern runs the denylist and then the catalog, returning the
// named groups of the first expression that matches.
func matchPattern(text string) (map[string]string, patternEntry, bool) {
	for _, re := range denylist {
		if re.MatchString(text) {
			return nil, patternEntry{}, false
		}
	}

	for _, e := range patterns {
		m := e.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		groups := make(map[string]string)
		for i, name := range e.re.SubexpNames() {
			if name != "" && i < len(m) {
				groups[name] = m[i]
			}
		}
		return groups, e, true
	}
	return nil, patternEntry{}, false
}

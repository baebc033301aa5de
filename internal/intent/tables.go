package intent

// AdvisorTable drives the farming assistant. Pest comes first: a message
// about a pest on a crop is a pest problem. Keywords are substrings, so
// short words like "rice" are left out ("price").
var AdvisorTable = Table{
	{Category: Pest, Keywords: []string{"pest", "insect", "disease", "कीट", "बीमारी", "रोग"}},
	{Category: Crop, Keywords: []string{"crop", "paddy", "wheat", "sowing", "harvest", "फसल", "धान", "गेहूं", "बुआई"}},
	{Category: Weather, Keywords: []string{"weather", "forecast", "temperature", "मौसम", "बारिश", "तापमान"}},
	{Category: Soil, Keywords: []string{"soil", "fertilizer", "manure", "मिट्टी", "खाद"}},
}

// NewAdvisor returns the classifier used by chat sessions.
func NewAdvisor() *Classifier {
	return New(AdvisorTable, Default)
}

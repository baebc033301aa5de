package responder

import (
	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
)

// Greeting opens every conversation.
var Greeting = local.New(
	"नमस्ते! मैं आपका AI कृषि सलाहकार हूं। आप मुझसे फसल, मौसम, कीट, बीमारी, या खेती से जुड़ा कोई भी सवाल पूछ सकते हैं।",
	"Hello! I am your AI Agricultural Advisor. You can ask me anything about crops, weather, pests, diseases, or farming.",
)

// Suggestion is a quick action offered beside the greeting. Sending
// Message as a chat turn classifies as Category.
type Suggestion struct {
	Label    string          `json:"label"`
	Message  string          `json:"message"`
	Category intent.Category `json:"category"`
}

var quickActions = []struct {
	label    local.TextSet
	category intent.Category
}{
	{local.New("🌾 फसल की सिफारिश", "Crop Recommendation"), intent.Crop},
	{local.New("🌤️ मौसम की जानकारी", "Weather Info"), intent.Weather},
	{local.New("🐛 कीट की समस्या", "Pest Problem"), intent.Pest},
	{local.New("🌱 मिट्टी की जांच", "Soil Test"), intent.Soil},
}

// Suggestions returns the quick actions with labels in language. The
// message is always the English label.
func Suggestions(language local.Language) []Suggestion {
	out := make([]Suggestion, 0, len(quickActions))
	for _, a := range quickActions {
		out = append(out, Suggestion{
			Label:    a.label.Text(language),
			Message:  a.label.Text(local.English),
			Category: a.category,
		})
	}
	return out
}

// AdvisorPool holds the assistant's canned replies.
var AdvisorPool = Pool{
	intent.Crop: {
		local.New("धान की खेती के लिए अभी सबसे अच्छा समय है। मिट्टी में नमी 70% होनी चाहिए।",
			"This is the best time for rice cultivation. Soil moisture should be 70%."),
		local.New("गेहूं की बुआई नवंबर में करें। बीज दर 100-120 किग्रा प्रति हेक्टेयर रखें।",
			"Sow wheat in November. Keep seed rate 100-120 kg per hectare."),
		local.New("कपास की फसल के लिए काली मिट्टी सबसे अच्छी होती है।",
			"Black soil is best for cotton crop."),
	},
	intent.Weather: {
		local.New("आज बारिश की संभावना है। फसल को ढकने की तैयारी करें।",
			"There is a chance of rain today. Prepare to cover crops."),
		local.New("अगले 3 दिन धूप रहेगी। सिंचाई की व्यवस्था करें।",
			"It will be sunny for the next 3 days. Arrange for irrigation."),
		local.New("तापमान 35°C से ऊपर जाने की संभावना है। पानी की मात्रा बढ़ाएं।",
			"Temperature may go above 35°C. Increase water quantity."),
	},
	intent.Pest: {
		local.New("पत्तियों पर सफेद धब्बे दिख रहे हैं तो यह पाउडरी मिल्ड्यू हो सकता है। नीम का तेल छिड़कें।",
			"White spots on leaves could be powdery mildew. Spray neem oil."),
		local.New("तना छेदक कीट के लिए फेरोमोन ट्रैप का उपयोग करें।",
			"Use pheromone traps for stem borer pest."),
		local.New("जैविक कीटनाशक का उपयोग करें। रासायनिक दवा से बचें।",
			"Use organic pesticides. Avoid chemical medicines."),
	},
	intent.Soil: {
		local.New("मिट्टी की जांच कराएं। pH 6.5-7.5 के बीच होना चाहिए।",
			"Get soil tested. pH should be between 6.5-7.5."),
		local.New("जैविक खाद का उपयोग करें। गोबर की खाद सबसे अच्छी है।",
			"Use organic fertilizer. Cow dung manure is the best."),
		local.New("मिट्टी में नाइट्रोजन की कमी है। यूरिया का छिड़काव करें।",
			"Soil lacks nitrogen. Spray urea."),
	},
	intent.Default: {
		local.New("यह एक दिलचस्प सवाल है। मुझे और जानकारी चाहिए।",
			"This is an interesting question. I need more information."),
		local.New("कृपया अपना सवाल और स्पष्ट करें।",
			"Please clarify your question more."),
		local.New("मैं आपकी मदद करने की कोशिश कर रहा हूं।",
			"I am trying to help you."),
	},
}

package preprocess

// BengaliStopwords is the fixed closed vocabulary of Bengali function words
// filtered out by StripStopwords.
var BengaliStopwords = map[string]bool{
	"এবং": true, "বা": true, "কিন্তু": true, "তবে": true, "যদি": true,
	"তাহলে": true, "কারণ": true, "যেহেতু": true, "অথচ": true, "তথাপি": true,
	"সুতরাং": true, "অতএব": true, "কিংবা": true, "অথবা": true, "না": true,
	"নয়": true, "আর": true, "ও": true, "এর": true, "এই": true,
	"সেই": true, "ওই": true, "যে": true, "যা": true, "যার": true,
	"যাকে": true, "যাদের": true, "কে": true, "কী": true, "কোন": true,
	"কোথায়": true, "কখন": true, "কেন": true, "কীভাবে": true,
}

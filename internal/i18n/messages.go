// Package i18n 提醒与导出相关的文案（es 为默认语言）
package i18n

import "github.com/Hans-Rafael/glup-water-reminder/internal/models"

// InAppReminder 前台提醒卡片文案
type InAppReminder struct {
	Title     string
	Body      string
	SnoozeCTA string
	DrinkCTA  string
}

var inApp = map[models.Language]InAppReminder{
	models.LanguageES: {
		Title:     "💧 ¡Hora de hidratarte!",
		Body:      "Es momento de beber agua. ¡Tu cuerpo te lo agradecerá!",
		SnoozeCTA: "Recordar en 10 min",
		DrinkCTA:  "Ya bebí agua",
	},
	models.LanguageEN: {
		Title:     "💧 Time to hydrate!",
		Body:      "It's time to drink water. Your body will thank you!",
		SnoozeCTA: "Remind in 10 min",
		DrinkCTA:  "I drank water",
	},
}

var notificationTitles = map[models.Language]string{
	models.LanguageES: "Recordatorio Glup",
	models.LanguageEN: "Glup Water Reminder",
}

var notificationBodies = map[models.Language][]string{
	models.LanguageES: {
		"💧 ¡Hora de hidratarte! Tu cuerpo te lo agradecerá",
		"🥤 Es momento de beber agua. ¡Mantente hidratado!",
		"💦 Recordatorio: Bebe un vaso de agua ahora",
		"🌊 Tu salud es importante. ¡Hidrátate!",
		"💧 ¡No olvides beber agua! Tu meta diaria te espera",
	},
	models.LanguageEN: {
		"💧 Time to hydrate! Your body will thank you",
		"🥤 Time to drink water. Stay hydrated!",
		"💦 Reminder: Drink a glass of water now",
		"🌊 Your health matters. Hydrate yourself!",
		"💧 Don't forget to drink water! Your daily goal awaits",
	},
}

// 历史导出表头：日期、升、次数、目标、完成
var historyHeaders = map[models.Language][]string{
	models.LanguageES: {"Fecha", "Litros", "Vasos", "Meta (L)", "Meta cumplida"},
	models.LanguageEN: {"Date", "Liters", "Glasses", "Goal (L)", "Goal reached"},
}

var historySheet = map[models.Language]string{
	models.LanguageES: "Historial",
	models.LanguageEN: "History",
}

var yesNo = map[models.Language][2]string{
	models.LanguageES: {"Sí", "No"},
	models.LanguageEN: {"Yes", "No"},
}

func lang(l models.Language) models.Language {
	return models.NormalizeLanguage(string(l))
}

// Reminder 前台提醒文案
func Reminder(l models.Language) InAppReminder {
	return inApp[lang(l)]
}

// NotificationTitle 系统通知标题
func NotificationTitle(l models.Language) string {
	return notificationTitles[lang(l)]
}

// NotificationBody 按序号轮换通知正文
func NotificationBody(l models.Language, i int) string {
	bodies := notificationBodies[lang(l)]
	if i < 0 {
		i = -i
	}
	return bodies[i%len(bodies)]
}

// NotificationBodyCount 正文池大小
func NotificationBodyCount(l models.Language) int {
	return len(notificationBodies[lang(l)])
}

// HistoryHeaders 历史导出表头
func HistoryHeaders(l models.Language) []string {
	return historyHeaders[lang(l)]
}

// HistorySheet 历史导出工作表名
func HistorySheet(l models.Language) string {
	return historySheet[lang(l)]
}

// YesNo 布尔值文案
func YesNo(l models.Language, v bool) string {
	if v {
		return yesNo[lang(l)][0]
	}
	return yesNo[lang(l)][1]
}

package server

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/Daskott/safepoint/server/docstore"
	"github.com/Daskott/safepoint/server/gstorage"
	"github.com/Daskott/safepoint/server/metrics"
	"github.com/Daskott/safepoint/server/models"
	"github.com/Daskott/safepoint/server/work"
	"github.com/Daskott/safepoint/utils"
	"github.com/pkg/errors"
)

const (
	SEND_ALERT_SMS_HANDLER  = "sendAlertSms"
	MIRROR_DOCUMENT_HANDLER = "mirrorDocument"
	BACKUP_SQLITE_HANDLER   = "backupSqliteDb"
)

// sendAlertSms sends the SMS for one alert delivery. Returning an error lets the queue retry it.
func sendAlertSms(args map[string]interface{}) error {
	deliveryID, err := uintArg(args, "delivery_id")
	if err != nil {
		return err
	}

	delivery, err := models.FindAlertDelivery(deliveryID)
	if err != nil {
		return errors.Wrap(err, "sendAlertSms")
	}

	// Already sent on a previous attempt
	if delivery.Status == models.SENT_DELIVERY || delivery.Status == models.DELIVERED_DELIVERY {
		return nil
	}

	alert, err := models.FindEmergencyAlert(delivery.EmergencyAlertID)
	if err != nil {
		return errors.Wrap(err, "sendAlertSms")
	}

	messageSid, sendErr := smsClient.SendMessage(delivery.PhoneNumber, alert.SmsMessage())
	if sendErr != nil {
		metrics.SmsDeliveriesTotal.WithLabelValues(models.FAILED_DELIVERY).Inc()

		err = delivery.MarkAsFailed(sendErr)
		if err != nil {
			logg.Error(err)
		}
		return errors.Wrapf(sendErr, "unable to send alert sms to contact %v", delivery.ContactID)
	}

	metrics.SmsDeliveriesTotal.WithLabelValues(models.SENT_DELIVERY).Inc()
	return delivery.MarkAsSent(messageSid)
}

// mirrorDocument copies the current state of an incident or alert into firestore
func mirrorDocument(args map[string]interface{}) error {
	if docMirror == nil {
		return nil
	}

	collection, _ := args["collection"].(string)
	id, err := uintArg(args, "id")
	if err != nil {
		return err
	}

	var data map[string]interface{}
	switch collection {
	case docstore.INCIDENTS_COLLECTION:
		report, err := models.FindIncidentReport(id)
		if err != nil {
			return errors.Wrap(err, "mirrorDocument")
		}
		data = report.ToMap()
	case docstore.ALERTS_COLLECTION:
		alert, err := models.FindEmergencyAlert(id)
		if err != nil {
			return errors.Wrap(err, "mirrorDocument")
		}
		data = alert.ToMap()
	default:
		return fmt.Errorf("unknown collection '%v'", collection)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return docMirror.Put(ctx, collection, fmt.Sprint(id), data)
}

// backupSqliteDb uploads the sqlite db file to google storage
func backupSqliteDb(map[string]interface{}) error {
	if gStorage == nil || sqliteFilePath == "" {
		return nil
	}

	if !utils.FileExist(sqliteFilePath) {
		return fmt.Errorf("no db file found at %v", sqliteFilePath)
	}

	storageConfig := serverConfig.Google.Storage
	return gStorage.UploadFile(storageConfig.Bucket, path.Join(storageConfig.Prefix, models.DB_NAME), sqliteFilePath)
}

// restoreSqliteDb pulls down the last backup when there's no local db yet
func restoreSqliteDb() error {
	if gStorage == nil || sqliteFilePath == "" || utils.FileExist(sqliteFilePath) {
		return nil
	}

	storageConfig := serverConfig.Google.Storage
	err := gStorage.DownloadFile(storageConfig.Bucket, path.Join(storageConfig.Prefix, models.DB_NAME), sqliteFilePath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Info("No sqlite backup found, starting with a new db")
		return nil
	}

	return err
}

func registerJobHandlers(wpa *work.WorkerPoolAdapter) error {
	handlers := map[string]work.Handler{
		SEND_ALERT_SMS_HANDLER:  sendAlertSms,
		MIRROR_DOCUMENT_HANDLER: mirrorDocument,
		BACKUP_SQLITE_HANDLER:   backupSqliteDb,
	}

	for name, handler := range handlers {
		err := wpa.Register(name, handler)
		if err != nil {
			return err
		}
	}
	return nil
}

func enqueueJobs(wpa *work.WorkerPoolAdapter) error {
	storageConfig := serverConfig.Google.Storage
	if gStorage == nil || !storageConfig.EnableSqliteBackupAndSync {
		return nil
	}

	return wpa.PeriodicallyPerform(storageConfig.SqliteBackupSchedule, work.JobParams{
		Name:    BACKUP_SQLITE_HANDLER,
		Handler: BACKUP_SQLITE_HANDLER,
		Args:    map[string]interface{}{},
	})
}

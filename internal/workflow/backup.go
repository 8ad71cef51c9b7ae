package workflow

import "infraops/internal/api"

// ConfigBackupWorkflowID is the id of the built-in configuration backup
// pipeline.
const ConfigBackupWorkflowID = "config_backup"

// ConfigBackupDefinition builds the configuration backup pipeline: run the
// backup job on the backup service, list the produced artifact directory,
// and archive each artifact through the filesystem service. An empty
// artifact listing stops the pipeline as a success, not an error; artifacts
// that fail to read are skipped and the result names exactly the files that
// were copied.
func ConfigBackupDefinition(backupServiceID, filesystemServiceID string) api.WorkflowDefinition {
	return api.WorkflowDefinition{
		ID:          ConfigBackupWorkflowID,
		Name:        "Configuration backup",
		Description: "Runs the configuration backup job and archives the produced artifacts.",
		Defaults: map[string]interface{}{
			"targetPath":  "/backups/config-{now}",
			"archivePath": "/backups/archive-{now}",
		},
		Steps: []api.WorkflowStep{
			{
				ID:        "run_backup",
				Name:      "Run backup job",
				Kind:      api.StepService,
				ServiceID: backupServiceID,
				Tool:      "run_backup_job",
				Args: map[string]interface{}{
					"targetPath": "{targetPath}",
				},
			},
			{
				ID:        "list_artifacts",
				Name:      "List backup artifacts",
				Kind:      api.StepService,
				ServiceID: filesystemServiceID,
				Tool:      "list_directory",
				Args: map[string]interface{}{
					"path": "{targetPath}",
				},
				Condition: "artifacts_present",
			},
			{
				ID:     "copy_artifacts",
				Name:   "Archive artifacts",
				Kind:   api.StepInternal,
				Action: "copy_artifacts",
				Args: map[string]interface{}{
					"serviceId": filesystemServiceID,
					"sourceDir": "{targetPath}",
					"destDir":   "{archivePath}",
				},
			},
		},
	}
}
